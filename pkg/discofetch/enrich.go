package discofetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"discofetch/pkg/discofetch/discogs"
	"discofetch/pkg/discofetch/store"
)

// Workbook column names. Required columns are exact and case-sensitive;
// the rest are created as enrichment fields are discovered.
const (
	ColumnCat        = "Cat"
	ColumnArtist     = "Artist"
	ColumnAlbum      = "Album"
	ColumnURL        = "Url"
	ColumnMatchByCat = "Match by cat"
)

// RequiredColumns must all exist in the source workbook before any
// fetch is attempted.
var RequiredColumns = []string{ColumnCat, ColumnArtist, ColumnAlbum}

// Site is the remote catalog capability the enricher depends on. Any
// fetch failure is treated uniformly as "no content" for that row.
type Site interface {
	Search(ctx context.Context, query string, byCat bool) (string, error)
	Page(ctx context.Context, pageURL string) (string, error)
	ResolveURL(href string) string
}

// Report summarizes one run for the caller's front-end.
type Report struct {
	Rows      int
	Resolved  int
	Exhausted int
	Detailed  int
	Skipped   int

	mu sync.Mutex
}

func (r *Report) add(field *int) {
	r.mu.Lock()
	*field++
	r.mu.Unlock()
}

// Enricher drives the two enrichment passes over a loaded table.
type Enricher struct {
	store *store.Table
	site  Site
	log   *slog.Logger
}

// NewEnricher wires an enricher. A nil logger discards output.
func NewEnricher(table *store.Table, site Site, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Enricher{store: table, site: site, log: logger}
}

// Run validates preconditions, then executes the URL-resolution pass
// followed by the detail-fetch pass. Per-row failures are logged and
// never abort the run; only precondition failures are fatal.
func (e *Enricher) Run(ctx context.Context, opts Options) (*Report, error) {
	if !e.store.HasColumns(RequiredColumns...) {
		return nil, fmt.Errorf("%w: file must have columns %s",
			ErrMissingColumns, strings.Join(RequiredColumns, ", "))
	}

	report := &Report{Rows: e.store.Len()}

	if !opts.SkipURLs {
		e.findURLs(ctx, opts.workerCount(), report)
	}
	if !opts.SkipDetails {
		e.findDetails(ctx, opts.workerCount(), report)
	}

	return report, nil
}

// findURLs resolves a record URL for every row that lacks one. Rows
// that already carry a Url are left alone, so re-runs are idempotent.
func (e *Enricher) findURLs(ctx context.Context, workers int, report *Report) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < e.store.Len(); i++ {
		g.Go(func() error {
			e.resolveRow(ctx, i, report)
			return nil
		})
	}
	_ = g.Wait()
}

type searchQuery struct {
	text  string
	byCat bool
}

func (e *Enricher) resolveRow(ctx context.Context, i int, report *Report) {
	row := e.store.Row(i)
	if row.Field(ColumnURL) != "" {
		report.add(&report.Skipped)
		return
	}

	log := e.rowLogger(i, row)
	log.Info("searching url")

	// Catalog number first: it is the most specific key. The broader
	// artist+album search only runs when the catalog search finds
	// nothing or no catalog number exists.
	var queries []searchQuery
	if cat := row.Field(ColumnCat); cat != "" {
		queries = append(queries, searchQuery{text: cat, byCat: true})
	}
	if q := strings.TrimSpace(row.Field(ColumnArtist) + " " + row.Field(ColumnAlbum)); q != "" {
		queries = append(queries, searchQuery{text: q, byCat: false})
	}

	for _, q := range queries {
		page, err := e.site.Search(ctx, q.text, q.byCat)
		if err != nil {
			log.Warn("search fetch failed", "query", q.text, "error", err)
			continue
		}
		href, ok := discogs.FindBestMatch(page, row.Field(ColumnAlbum))
		if !ok {
			continue
		}

		matchByCat := "No"
		if q.byCat {
			matchByCat = "Yes"
		}
		recordURL := e.site.ResolveURL(href)
		if err := e.store.Patch(i,
			store.Field{Name: ColumnMatchByCat, Value: matchByCat},
			store.Field{Name: ColumnURL, Value: recordURL},
		); err != nil {
			log.Error("patch failed", "error", err)
			return
		}
		log.Info("found url", "url", recordURL, "match_by_cat", matchByCat)
		report.add(&report.Resolved)
		return
	}

	log.Info("no match found")
	report.add(&report.Exhausted)
}

// findDetails fetches each resolved record page and patches in the
// extracted fields. A table without a Url column at all means no URL
// search was ever configured, so the whole pass is skipped.
func (e *Enricher) findDetails(ctx context.Context, workers int, report *Report) {
	if !e.store.HasColumns(ColumnURL) {
		e.log.Info("no url column, skipping details pass")
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < e.store.Len(); i++ {
		g.Go(func() error {
			e.detailRow(ctx, i, report)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Enricher) detailRow(ctx context.Context, i int, report *Report) {
	row := e.store.Row(i)
	recordURL := row.Field(ColumnURL)
	if recordURL == "" {
		return
	}

	log := e.rowLogger(i, row)
	log.Info("searching details")

	page, err := e.site.Page(ctx, recordURL)
	if err != nil {
		log.Warn("page fetch failed", "url", recordURL, "error", err)
		return
	}

	details := discogs.ExtractDetails(page)
	if len(details) == 0 {
		log.Info("no details found")
		return
	}

	fields := make([]store.Field, 0, len(details))
	for _, name := range discogs.DetailColumns {
		if v, ok := details[name]; ok {
			fields = append(fields, store.Field{Name: name, Value: v})
		}
	}
	if err := e.store.Patch(i, fields...); err != nil {
		log.Error("patch failed", "error", err)
		return
	}
	log.Info("found details", "fields", len(fields))
	report.add(&report.Detailed)
}

func (e *Enricher) rowLogger(i int, row *store.Row) *slog.Logger {
	return e.log.With(
		"sheet", row.Sheet,
		"row", i,
		"cat", row.Field(ColumnCat),
		"artist", row.Field(ColumnArtist),
		"album", row.Field(ColumnAlbum),
	)
}
