package query

import (
	"bytes"
	"log/slog"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/connectorstore/internal/models"
)

func TestBuild_OrgOnly(t *testing.T) {
	got := Build(models.SearchParams{})
	if got != "org:ballerinax" {
		t.Errorf("Build = %q", got)
	}
}

func TestBuild_TextFirstThenFilters(t *testing.T) {
	got := Build(models.SearchParams{Query: "graphql", Areas: []string{"Finance"}})
	want := "graphql AND org:ballerinax AND keyword:Area/Finance"
	if got != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

func TestBuild_AllFacets(t *testing.T) {
	got := Build(models.SearchParams{
		OrgName: "acme",
		Areas:   []string{"Finance"},
		Vendors: []string{"Amazon"},
		Types:   []string{"Connector"},
	})
	want := "org:acme AND keyword:Area/Finance AND keyword:Vendor/Amazon AND keyword:Type/Connector"
	if got != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

func TestBuild_QuotesValuesWithSpaces(t *testing.T) {
	got := Build(models.SearchParams{Areas: []string{"Human Resources"}})
	want := `org:ballerinax AND keyword:"Area/Human Resources"`
	if got != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

func TestBuild_TransportEncoding(t *testing.T) {
	q := Build(models.SearchParams{Vendors: []string{"AT&T"}})
	v := url.Values{}
	v.Set("q", q)
	enc := v.Encode()
	if strings.Contains(enc, "&T") {
		t.Errorf("ampersand leaked into encoded query: %s", enc)
	}
	dec, err := url.ParseQuery(enc)
	if err != nil {
		t.Fatal(err)
	}
	if dec.Get("q") != q {
		t.Errorf("round trip = %q, want %q", dec.Get("q"), q)
	}
}

func TestSortParam(t *testing.T) {
	cases := map[models.SortOption]string{
		models.SortNameAsc:       "name,ASC",
		models.SortNameDesc:      "name,DESC",
		models.SortPullCountDesc: "pullCount,DESC",
		models.SortPullCountAsc:  "pullCount,ASC",
		models.SortDateDesc:      "createdDate,DESC",
		models.SortDateAsc:       "createdDate,ASC",
	}
	for in, want := range cases {
		got, err := SortParam(in)
		if err != nil {
			t.Fatalf("SortParam(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("SortParam(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSortParam_Invalid(t *testing.T) {
	if _, err := SortParam("size-desc"); err == nil {
		t.Error("expected error for unsupported option")
	}
}

func TestExpand_NoExpansionNeeded(t *testing.T) {
	in := models.SearchParams{
		Query: "x", Areas: []string{"Finance"}, Vendors: []string{"Amazon"},
		Offset: 10, Limit: 20, Sort: models.SortNameAsc,
	}
	out := Expand(in, 50, nil)
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	if !reflect.DeepEqual(out[0], in) {
		t.Errorf("sub-request = %+v, want input unchanged", out[0])
	}
}

func TestExpand_CartesianProduct(t *testing.T) {
	in := models.SearchParams{
		Areas:   []string{"Finance", "Sales"},
		Vendors: []string{"Amazon", "Google", "Stripe"},
		Limit:   10,
		Sort:    models.SortDateDesc,
	}
	out := Expand(in, 50, nil)
	if len(out) != 6 {
		t.Fatalf("len = %d, want 6", len(out))
	}
	if out[0].Areas[0] != "Finance" || out[0].Vendors[0] != "Amazon" {
		t.Errorf("first = %+v", out[0])
	}
	if out[5].Areas[0] != "Sales" || out[5].Vendors[0] != "Stripe" {
		t.Errorf("last = %+v", out[5])
	}
	for _, sub := range out {
		if len(sub.Areas) != 1 || len(sub.Vendors) != 1 || len(sub.Types) != 0 {
			t.Errorf("sub-request not single-valued: %+v", sub)
		}
		if sub.Sort != in.Sort || sub.Limit != in.Limit {
			t.Errorf("sub-request lost shared fields: %+v", sub)
		}
	}
}

func TestExpand_CeilingFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	values := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = string(rune('A' + i))
		}
		return out
	}
	in := models.SearchParams{Areas: values(4), Vendors: values(4), Types: values(4)}
	out := Expand(in, 50, logger)
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1 fallback request", len(out))
	}
	if !reflect.DeepEqual(out[0], in) {
		t.Errorf("fallback should be the original request")
	}
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "combinations=64") {
		t.Errorf("missing warning, log = %q", buf.String())
	}
}

func TestExpand_AtCeilingExpands(t *testing.T) {
	in := models.SearchParams{
		Areas:   []string{"a", "b", "c", "d", "e"},
		Vendors: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
	}
	if out := Expand(in, 50, nil); len(out) != 50 {
		t.Errorf("len = %d, want 50", len(out))
	}
}
