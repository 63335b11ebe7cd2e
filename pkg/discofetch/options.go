// Package discofetch enriches workbook rows with data from a remote
// record catalog: a resolved record URL per row, then a set of detail
// fields scraped from each record's page.
package discofetch

// Options configures a run.
type Options struct {
	// SkipURLs disables the URL-resolution pass.
	SkipURLs bool
	// SkipDetails disables the detail-fetch pass.
	SkipDetails bool
	// Workers bounds concurrent row fetches within a pass. Values
	// below 1 mean strictly sequential processing.
	Workers int
}

// DefaultOptions returns default run options: both passes enabled,
// sequential processing.
func DefaultOptions() Options {
	return Options{Workers: 1}
}

func (o Options) workerCount() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}
