// Package metadata interprets the "Prefix/Value" keyword convention used by
// registry packages and derives display names from package identifiers.
package metadata

import (
	"strings"

	"github.com/starford/connectorstore/internal/models"
)

// Other is the facet value used when a package carries no keyword for a facet.
const Other = "Other"

// Facet identifies one keyword-encoded dimension of a package.
type Facet int

const (
	Area Facet = iota
	Vendor
	Type
	Industry
)

// Facets lists every facet kind in keyword-parsing order.
var Facets = []Facet{Area, Vendor, Type, Industry}

// Prefix returns the keyword prefix, including the trailing slash.
func (f Facet) Prefix() string {
	switch f {
	case Area:
		return "Area/"
	case Vendor:
		return "Vendor/"
	case Type:
		return "Type/"
	case Industry:
		return "Industry/"
	}
	return ""
}

func (f Facet) String() string {
	return strings.TrimSuffix(f.Prefix(), "/")
}

// Keyword returns the raw registry keyword for a facet value.
func Keyword(f Facet, value string) string {
	return f.Prefix() + value
}

// Value returns the first keyword value carrying the facet's prefix.
func Value(keywords []string, f Facet) (string, bool) {
	prefix := f.Prefix()
	for _, k := range keywords {
		if v, ok := strings.CutPrefix(k, prefix); ok {
			return v, true
		}
	}
	return "", false
}

// Parse derives the facet values of a package from its keywords. The first
// keyword per prefix wins; missing facets are reported as Other.
func Parse(keywords []string) models.ConnectorMetadata {
	get := func(f Facet) string {
		if v, ok := Value(keywords, f); ok && v != "" {
			return v
		}
		return Other
	}
	return models.ConnectorMetadata{
		Area:     get(Area),
		Vendor:   get(Vendor),
		Type:     get(Type),
		Industry: get(Industry),
	}
}

// Of returns the facet value stored in m for f.
func Of(m models.ConnectorMetadata, f Facet) string {
	switch f {
	case Area:
		return m.Area
	case Vendor:
		return m.Vendor
	case Type:
		return m.Type
	case Industry:
		return m.Industry
	}
	return ""
}
