package connectorservice

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/starford/connectorstore/internal/apperr"
	"github.com/starford/connectorstore/internal/models"
	"github.com/starford/connectorstore/internal/registry"
	"github.com/starford/connectorstore/internal/retry"
)

type fakeSearcher struct {
	got  models.SearchParams
	resp models.SearchResponse
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, p models.SearchParams) (models.SearchResponse, error) {
	f.got = p
	return f.resp, f.err
}

type fakeLoader struct {
	opts    models.FilterOptions
	full    models.FilterOptions
	gotOrg  string
	updated sync.WaitGroup
}

func (f *fakeLoader) Get(_ context.Context, org string, onUpdate func(models.FilterOptions)) (models.FilterOptions, error) {
	f.gotOrg = org
	if onUpdate != nil {
		f.updated.Add(1)
		go func() {
			defer f.updated.Done()
			onUpdate(f.full)
		}()
	}
	return f.opts, nil
}

type fakeEnricher struct{ calls int }

func (f *fakeEnricher) Enrich(_ context.Context, _ string, recs []models.Package) []models.Package {
	f.calls++
	out := make([]models.Package, len(recs))
	for i, r := range recs {
		out[i] = r.WithTotalPullCount(42)
	}
	return out
}

type fakeDetails struct {
	d   Detail
	err error
}

func (f fakeDetails) Details(context.Context, string, string, string) (Detail, error) {
	return f.d, f.err
}

type fakeDocs struct {
	url  string
	err  error
	name string
}

func (f *fakeDocs) DocumentationURL(_ context.Context, name string) (string, error) {
	f.name = name
	return f.url, f.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	orgs []string
}

func (r *recordingPublisher) PublishFilters(org string, _ models.FilterOptions) {
	r.mu.Lock()
	r.orgs = append(r.orgs, org)
	r.mu.Unlock()
}

func TestSearch_DefaultsOrgAndEnriches(t *testing.T) {
	src := &fakeSearcher{resp: models.SearchResponse{Packages: []models.Package{{Name: "a"}}, Count: 1}}
	enr := &fakeEnricher{}
	s := New(src, &fakeLoader{}, fakeDetails{}, WithEnricher(enr), WithDefaultOrg("wso2"))

	resp, err := s.Search(context.Background(), models.SearchParams{Limit: 10}, true)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if src.got.OrgName != "wso2" {
		t.Errorf("org = %q, want wso2", src.got.OrgName)
	}
	if resp.Packages[0].TotalPullCount == nil || *resp.Packages[0].TotalPullCount != 42 {
		t.Errorf("not enriched: %+v", resp.Packages[0])
	}

	_, _ = s.Search(context.Background(), models.SearchParams{Limit: 10}, false)
	if enr.calls != 1 {
		t.Errorf("enrich calls = %d, want 1", enr.calls)
	}
}

func TestSearch_InvalidParams(t *testing.T) {
	src := &fakeSearcher{}
	s := New(src, &fakeLoader{}, fakeDetails{})
	_, err := s.Search(context.Background(), models.SearchParams{Limit: 0}, false)
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestSearch_EmptyPageIsNonNil(t *testing.T) {
	s := New(&fakeSearcher{}, &fakeLoader{}, fakeDetails{})
	resp, err := s.Search(context.Background(), models.SearchParams{Limit: 5}, true)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Packages == nil {
		t.Error("packages should be an empty slice")
	}
}

func TestFilters_PublishesCompleteOptions(t *testing.T) {
	loader := &fakeLoader{opts: models.FilterOptions{Areas: []string{"A"}}}
	pub := &recordingPublisher{}
	s := New(&fakeSearcher{}, loader, fakeDetails{}, WithPublisher(pub))

	got, err := s.Filters(context.Background(), "")
	if err != nil {
		t.Fatalf("Filters: %v", err)
	}
	if len(got.Areas) != 1 || loader.gotOrg != models.DefaultOrg {
		t.Errorf("got %+v for org %q", got, loader.gotOrg)
	}
	loader.updated.Wait()
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.orgs) != 1 || pub.orgs[0] != models.DefaultOrg {
		t.Errorf("published = %v", pub.orgs)
	}
}

func TestDetails_BuildsView(t *testing.T) {
	d := Detail{
		Package: models.Package{Name: "aws.s3", Version: "2.0.0", Keywords: []string{"Area/Storage", "Vendor/Amazon"}},
		Readme:  "Intro\n\n## Overview\nStore objects.\n\n## Setup\nCreate a bucket.\n",
		Versions: []string{"2.0.0", "1.0.0"},
	}
	docs := &fakeDocs{url: "https://docs/s3"}
	s := New(&fakeSearcher{}, &fakeLoader{}, fakeDetails{d: d}, WithDocs(docs), WithEnricher(&fakeEnricher{}))

	got, err := s.Details(context.Background(), "", "aws.s3", "")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if got.DisplayName != "AWS S3" {
		t.Errorf("display name = %q", got.DisplayName)
	}
	if got.Overview != "## Overview\nStore objects." || got.Setup != "## Setup\nCreate a bucket." {
		t.Errorf("sections = %q / %q", got.Overview, got.Setup)
	}
	if got.Metadata.Area != "Storage" || got.Metadata.Type != "Other" {
		t.Errorf("metadata = %+v", got.Metadata)
	}
	if got.DocsURL != "https://docs/s3" || docs.name != "AWS S3" {
		t.Errorf("docs = %q looked up by %q", got.DocsURL, docs.name)
	}
	if got.Org != models.DefaultOrg || got.TotalPullCount == nil {
		t.Errorf("org = %q, total = %v", got.Org, got.TotalPullCount)
	}
}

func TestDetails_DocsFailureIsIgnored(t *testing.T) {
	d := Detail{Package: models.Package{Name: "x", Version: "1"}}
	for _, docsErr := range []error{apperr.ErrNotFound, errors.New("timeout")} {
		s := New(&fakeSearcher{}, &fakeLoader{}, fakeDetails{d: d}, WithDocs(&fakeDocs{err: docsErr}))
		got, err := s.Details(context.Background(), "", "x", "1")
		if err != nil {
			t.Fatalf("Details: %v", err)
		}
		if got.DocsURL != "" {
			t.Errorf("docs url = %q", got.DocsURL)
		}
	}
}

func TestDetails_Errors(t *testing.T) {
	s := New(&fakeSearcher{}, &fakeLoader{}, fakeDetails{err: apperr.ErrNotFound})
	if _, err := s.Details(context.Background(), "", "x", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Details(context.Background(), "", "  ", ""); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestRegistryDetails_ResolvesLatestVersion(t *testing.T) {
	var detailPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/registry/packages/ballerinax/stripe":
			_, _ = io.WriteString(w, `["1.0.0","1.3.0","1.2.5"]`)
		default:
			detailPath = r.URL.Path
			_, _ = io.WriteString(w, `{"name":"stripe","version":"1.3.0","readme":"hi"}`)
		}
	}))
	defer srv.Close()

	rd := RegistryDetails{
		Client: registry.New(registry.WithRESTURL(srv.URL)),
		Policy: retry.Policy{Name: "details", Attempts: 1, BaseDelay: time.Millisecond},
	}
	d, err := rd.Details(context.Background(), "ballerinax", "stripe", "")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if detailPath != "/registry/packages/ballerinax/stripe/1.3.0" {
		t.Errorf("detail path = %s", detailPath)
	}
	if d.Readme != "hi" || d.Versions[0] != "1.3.0" {
		t.Errorf("detail = %+v", d)
	}
}

func TestRegistryDetails_ErrorKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/registry/packages/ballerinax/missing" {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	rd := RegistryDetails{
		Client: registry.New(registry.WithRESTURL(srv.URL)),
		Policy: retry.Policy{Name: "details", Attempts: 2, BaseDelay: time.Millisecond},
	}
	if _, err := rd.Details(context.Background(), "ballerinax", "missing", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("404 err = %v, want ErrNotFound", err)
	}
	if _, err := rd.Details(context.Background(), "ballerinax", "broken", ""); !errors.Is(err, apperr.ErrUpstream) {
		t.Errorf("502 err = %v, want ErrUpstream", err)
	}
}
