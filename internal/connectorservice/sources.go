package connectorservice

import (
	"context"
	"fmt"

	"github.com/starford/connectorstore/internal/apperr"
	"github.com/starford/connectorstore/internal/catalog"
	"github.com/starford/connectorstore/internal/registry"
	"github.com/starford/connectorstore/internal/retry"
)

// RegistryDetails reads details from the registry's REST API, retrying
// transient failures.
type RegistryDetails struct {
	Client *registry.Client
	Policy retry.Policy
}

// Details resolves an empty version to the newest published one.
func (r RegistryDetails) Details(ctx context.Context, org, name, version string) (Detail, error) {
	versions, err := retry.Do(ctx, r.Policy, func(ctx context.Context) ([]string, error) {
		return r.Client.PackageVersions(ctx, org, name)
	})
	if err != nil {
		return Detail{}, upstream(err)
	}
	if version == "" {
		if len(versions) == 0 {
			return Detail{}, fmt.Errorf("%s/%s: %w", org, name, apperr.ErrNotFound)
		}
		version = versions[0]
	}

	pkg, err := retry.Do(ctx, r.Policy, func(ctx context.Context) (registry.PackageWithReadme, error) {
		return r.Client.PackageDetails(ctx, org, name, version)
	})
	if err != nil {
		return Detail{}, upstream(err)
	}
	return Detail{Package: pkg.Package, Readme: pkg.Readme, Versions: versions}, nil
}

// SnapshotDetails reads details from a loaded catalog snapshot. Snapshots
// carry no README text.
type SnapshotDetails struct {
	Source *catalog.Source
}

func (s SnapshotDetails) Details(_ context.Context, org, name, version string) (Detail, error) {
	p, versions, err := s.Source.Package(org, name, version)
	if err != nil {
		return Detail{}, fmt.Errorf("%s/%s: %w", org, name, err)
	}
	return Detail{Package: p, Versions: versions}, nil
}

func upstream(err error) error {
	if apperr.IsClientError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrUpstream, err)
}
