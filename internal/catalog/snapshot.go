package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/connectorstore/internal/apperr"
	"github.com/starford/connectorstore/internal/checksum"
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/registry"
	"github.com/starford/connectorstore/internal/storage"
)

// DefaultSnapshotName is the file name export writes by default.
const DefaultSnapshotName = "catalog.json"

// Snapshot is a full copy of one organization's catalog.
type Snapshot struct {
	Org         string           `json:"org"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Packages    []models.Package `json:"packages"`
}

// Encode serializes the snapshot as indented JSON.
func (s Snapshot) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Source answers searches from a snapshot file instead of the registry.
type Source struct {
	store   storage.Provider
	name    string
	tracker *checksum.Tracker
	logger  *slog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// NewSource returns a Source for the snapshot file name in store. Call Load
// before serving.
func NewSource(store storage.Provider, name string, logger *slog.Logger) *Source {
	if name == "" {
		name = DefaultSnapshotName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{store: store, name: name, tracker: checksum.NewTracker(), logger: logger}
}

// Name returns the snapshot file name.
func (s *Source) Name() string {
	return s.name
}

// Load reads the snapshot file and swaps it in. It reports false without
// decoding when the file content is unchanged since the last load.
func (s *Source) Load() (bool, error) {
	data, err := s.store.Read(s.name)
	if err != nil {
		return false, err
	}
	if !s.tracker.Changed(s.name, data) {
		return false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.tracker.Forget(s.name)
		return false, fmt.Errorf("catalog: decode snapshot %s: %w", s.name, err)
	}
	if snap.Org == "" {
		snap.Org = models.DefaultOrg
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.logger.Info("catalog: snapshot loaded",
		slog.String("name", s.name),
		slog.String("org", snap.Org),
		slog.Int("packages", len(snap.Packages)),
		slog.Time("generated_at", snap.GeneratedAt))
	return true, nil
}

// Snapshot returns the loaded snapshot.
func (s *Source) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Search filters, sorts and windows the snapshot the way the registry would
// answer params. Count is the number of matches before windowing.
func (s *Source) Search(_ context.Context, params models.SearchParams) (models.SearchResponse, error) {
	snap := s.Snapshot()
	empty := models.SearchResponse{Packages: []models.Package{}, Offset: params.Offset, Limit: params.Limit}
	if params.Org() != snap.Org {
		return empty, nil
	}
	sortBy := params.Sort
	if sortBy == "" {
		sortBy = models.DefaultSort
	}
	matched := Sort(Filter(snap.Packages, FiltersFrom(params)), sortBy)
	return models.SearchResponse{
		Packages: Window(matched, params.Offset, params.Limit),
		Count:    len(matched),
		Offset:   params.Offset,
		Limit:    params.Limit,
	}, nil
}

// Package returns one package version from the snapshot along with every
// version of the package it holds, newest first. An empty version selects
// the newest.
func (s *Source) Package(org, name, version string) (models.Package, []string, error) {
	snap := s.Snapshot()
	if org != snap.Org {
		return models.Package{}, nil, apperr.ErrNotFound
	}
	var versions []string
	byVersion := map[string]models.Package{}
	for _, p := range snap.Packages {
		if p.Name != name {
			continue
		}
		if _, ok := byVersion[p.Version]; !ok {
			versions = append(versions, p.Version)
		}
		byVersion[p.Version] = p
	}
	if len(versions) == 0 {
		return models.Package{}, nil, apperr.ErrNotFound
	}
	versions = registry.SortVersions(versions)
	if version == "" {
		version = versions[0]
	}
	p, ok := byVersion[version]
	if !ok {
		return models.Package{}, nil, apperr.ErrNotFound
	}
	return p, versions, nil
}
