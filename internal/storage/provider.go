// Package storage keeps catalog snapshot files in a local directory.
package storage

// Provider reads and writes snapshot files by name relative to its root.
type Provider interface {
	// Read returns the raw bytes of the file at name.
	Read(name string) ([]byte, error)
	// Write atomically replaces the file at name with content.
	Write(name string, content []byte) error
	// Path returns the absolute path of name, rejecting names that escape
	// the root.
	Path(name string) (string, error)
}
