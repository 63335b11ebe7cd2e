package discofetch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"

	"discofetch/pkg/discofetch/store"
)

// loadTestTable writes an xlsx with one sheet of album rows and loads
// it. Each row is Cat, Artist, Album plus optional extra columns.
func loadTestTable(t *testing.T, header []interface{}, rows ...[]interface{}) *store.Table {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Albums"); err != nil {
		t.Fatalf("Failed to rename sheet: %v", err)
	}
	if err := f.SetSheetRow("Albums", "A1", &header); err != nil {
		t.Fatalf("Failed to set header: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("Failed to build cell name: %v", err)
		}
		if err := f.SetSheetRow("Albums", cell, &row); err != nil {
			t.Fatalf("Failed to set row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "albums.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}

	table, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return table
}

type searchCall struct {
	query string
	byCat bool
}

// fakeSite records calls and serves canned responses.
type fakeSite struct {
	mu          sync.Mutex
	searchCalls []searchCall
	pageCalls   []string

	searchFn func(query string, byCat bool) (string, error)
	pageFn   func(url string) (string, error)
}

func (f *fakeSite) Search(_ context.Context, query string, byCat bool) (string, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, searchCall{query: query, byCat: byCat})
	f.mu.Unlock()
	if f.searchFn == nil {
		return "", nil
	}
	return f.searchFn(query, byCat)
}

func (f *fakeSite) Page(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, url)
	f.mu.Unlock()
	if f.pageFn == nil {
		return "", nil
	}
	return f.pageFn(url)
}

func (f *fakeSite) ResolveURL(href string) string {
	return "https://example.test" + href
}

func (f *fakeSite) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searchCalls) + len(f.pageCalls)
}

func matchingSearchPage(title, href string) string {
	return `<html><body><a class="search_result_title" href="` + href + `" title="` + title + `">x</a></body></html>`
}

const detailPage = `<html><body>
<div class="profile">
  <div class="head">Country:</div>
  <div class="content">Finland</div>
  <div class="head">Genre:</div>
  <div class="content">Jazz</div>
</div>
</body></html>`

func TestRunMissingColumnsAbortsBeforeFetch(t *testing.T) {
	table := loadTestTable(t,
		[]interface{}{"Cat", "Artist"},
		[]interface{}{"ACME-001", "The Examples"},
	)
	site := &fakeSite{}

	_, err := NewEnricher(table, site, nil).Run(context.Background(), DefaultOptions())
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("Expected ErrMissingColumns, got %v", err)
	}
	if n := site.fetchCount(); n != 0 {
		t.Errorf("Expected zero fetches before precondition failure, got %d", n)
	}
}

func TestURLPassIdempotentForResolvedRows(t *testing.T) {
	table := loadTestTable(t,
		[]interface{}{"Cat", "Artist", "Album", "Url"},
		[]interface{}{"ACME-001", "The Examples", "First Press", "https://example.test/release/1"},
	)
	site := &fakeSite{}

	report, err := NewEnricher(table, site, nil).Run(context.Background(),
		Options{SkipDetails: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(site.searchCalls) != 0 {
		t.Errorf("Expected zero search calls, got %d", len(site.searchCalls))
	}
	if report.Skipped != 1 {
		t.Errorf("Expected 1 skipped row, got %d", report.Skipped)
	}
}

func TestEmptyCatSkipsCatalogSearch(t *testing.T) {
	table := loadTestTable(t,
		[]interface{}{"Cat", "Artist", "Album"},
		[]interface{}{"", "The Examples", "First Press"},
	)
	site := &fakeSite{}

	if _, err := NewEnricher(table, site, nil).Run(context.Background(),
		Options{SkipDetails: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(site.searchCalls) != 1 {
		t.Fatalf("Expected exactly one search call, got %d", len(site.searchCalls))
	}
	call := site.searchCalls[0]
	if call.byCat {
		t.Error("Catalog-number search issued for empty catalog number")
	}
	if call.query != "The Examples First Press" {
		t.Errorf("Expected artist+album query, got %q", call.query)
	}
}

func TestCatalogMatchStopsStrategyList(t *testing.T) {
	table := loadTestTable(t,
		[]interface{}{"Cat", "Artist", "Album"},
		[]interface{}{"ACME-001", "The Examples", "First Press"},
	)
	site := &fakeSite{
		searchFn: func(query string, byCat bool) (string, error) {
			return matchingSearchPage("First Press", "/release/1"), nil
		},
	}

	report, err := NewEnricher(table, site, nil).Run(context.Background(),
		Options{SkipDetails: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(site.searchCalls) != 1 || !site.searchCalls[0].byCat {
		t.Fatalf("Expected a single catalog search, got %+v", site.searchCalls)
	}
	row := table.Row(0)
	if got := row.Field(ColumnURL); got != "https://example.test/release/1" {
		t.Errorf("Expected patched url, got %q", got)
	}
	if got := row.Field(ColumnMatchByCat); got != "Yes" {
		t.Errorf("Expected 'Yes', got %q", got)
	}
	if report.Resolved != 1 {
		t.Errorf("Expected 1 resolved row, got %d", report.Resolved)
	}
}

func TestFallbackToArtistAlbumSearch(t *testing.T) {
	table := loadTestTable(t,
		[]interface{}{"Cat", "Artist", "Album"},
		[]interface{}{"ACME-001", "The Examples", "First Press"},
	)
	site := &fakeSite{
		searchFn: func(query string, byCat bool) (string, error) {
			if byCat {
				return "<html><body></body></html>", nil
			}
			return matchingSearchPage("First Press", "/master/2"), nil
		},
	}

	if _, err := NewEnricher(table, site, nil).Run(context.Background(),
		Options{SkipDetails: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(site.searchCalls) != 2 {
		t.Fatalf("Expected two search calls, got %d", len(site.searchCalls))
	}
	row := table.Row(0)
	if got := row.Field(ColumnMatchByCat); got != "No" {
		t.Errorf("Expected 'No', got %q", got)
	}
	if got := row.Field(ColumnURL); got != "https://example.test/master/2" {
		t.Errorf("Expected patched url, got %q", got)
	}
}

func TestSearchFailureIsSoft(t *testing.T) {
	table := loadTestTable(t,
		[]interface{}{"Cat", "Artist", "Album"},
		[]interface{}{"ACME-001", "The Examples", "First Press"},
	)
	site := &fakeSite{
		searchFn: func(query string, byCat bool) (string, error) {
			return "", errors.New("connection refused")
		},
	}

	report, err := NewEnricher(table, site, nil).Run(context.Background(),
		Options{SkipDetails: true})
	if err != nil {
		t.Fatalf("Transport failure escalated: %v", err)
	}
	if report.Exhausted != 1 {
		t.Errorf("Expected 1 exhausted row, got %d", report.Exhausted)
	}
	if got := table.Row(0).Field(ColumnURL); got != "" {
		t.Errorf("Expected row left unresolved, got url %q", got)
	}
}

func TestDetailPassShortCircuitsWithoutURLColumn(t *testing.T) {
	table := loadTestTable(t,
		[]interface{}{"Cat", "Artist", "Album"},
		[]interface{}{"ACME-001", "The Examples", "First Press"},
	)
	site := &fakeSite{}

	if _, err := NewEnricher(table, site, nil).Run(context.Background(),
		Options{SkipURLs: true}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(site.pageCalls) != 0 {
		t.Errorf("Expected zero page fetches without a Url column, got %d", len(site.pageCalls))
	}
}

func TestDetailPassPatchesFoundFields(t *testing.T) {
	table := loadTestTable(t,
		[]interface{}{"Cat", "Artist", "Album", "Url"},
		[]interface{}{"ACME-001", "The Examples", "First Press", "https://example.test/release/1"},
		[]interface{}{"ACME-002", "The Examples", "Second Press", ""},
	)
	site := &fakeSite{
		pageFn: func(url string) (string, error) {
			return detailPage, nil
		},
	}

	report, err := NewEnricher(table, site, nil).Run(context.Background(),
		Options{SkipURLs: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Only the row with a url is fetched; empty-url rows are skipped.
	if len(site.pageCalls) != 1 {
		t.Fatalf("Expected one page fetch, got %d", len(site.pageCalls))
	}
	row := table.Row(0)
	if row.Field("Country") != "Finland" || row.Field("Genre") != "Jazz" {
		t.Errorf("Detail fields not patched: %q, %q", row.Field("Country"), row.Field("Genre"))
	}
	if report.Detailed != 1 {
		t.Errorf("Expected 1 detailed row, got %d", report.Detailed)
	}
	if got := table.Row(1).Field("Country"); got != "" {
		t.Errorf("Skipped row was patched: %q", got)
	}
}

func TestEmptyDetailPageLeavesRowUnchanged(t *testing.T) {
	table := loadTestTable(t,
		[]interface{}{"Cat", "Artist", "Album", "Url"},
		[]interface{}{"ACME-001", "The Examples", "First Press", "https://example.test/release/1"},
	)
	site := &fakeSite{
		pageFn: func(url string) (string, error) {
			return "<html><body>nothing here</body></html>", nil
		},
	}

	report, err := NewEnricher(table, site, nil).Run(context.Background(),
		Options{SkipURLs: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Detailed != 0 {
		t.Errorf("Expected no detailed rows, got %d", report.Detailed)
	}
	if table.HasColumns("Country") {
		t.Error("Empty extraction grew the column set")
	}
}

func TestParallelWorkersPreserveRowOrder(t *testing.T) {
	header := []interface{}{"Cat", "Artist", "Album"}
	rows := [][]interface{}{
		{"ACME-001", "The Examples", "First Press"},
		{"ACME-002", "The Examples", "Second Press"},
		{"ACME-003", "The Examples", "Third Press"},
		{"ACME-004", "The Examples", "Fourth Press"},
	}
	table := loadTestTable(t, header, rows...)
	site := &fakeSite{
		searchFn: func(query string, byCat bool) (string, error) {
			// Every catalog search matches its own album title.
			return matchingSearchPage(query, "/release/"+query), nil
		},
	}

	report, err := NewEnricher(table, site, nil).Run(context.Background(),
		Options{SkipDetails: true, Workers: 4})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Resolved+report.Exhausted != len(rows) {
		t.Fatalf("Report does not cover all rows: %+v", report)
	}

	// Rows stay in load order regardless of completion order.
	for i, row := range rows {
		if got := table.Row(i).Field(ColumnCat); got != row[0] {
			t.Errorf("Row %d moved: cat %q", i, got)
		}
	}
}
