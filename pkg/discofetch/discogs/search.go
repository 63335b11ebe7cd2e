package discogs

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// matchThreshold is the minimum partial-ratio score (0-100, exclusive)
// a result title must reach against the target album title.
const matchThreshold = 80

// FindBestMatch scans a search-results page for the first result whose
// title fuzzily matches target and returns its href. Matching uses a
// partial ratio, so extra tokens on either side (deluxe editions,
// format suffixes) still score high. Results are taken in document
// order and the first one above the threshold wins; the site's own
// relevance ranking breaks ties. An empty or unparseable document
// yields no match.
func FindBestMatch(document, target string) (string, bool) {
	if strings.TrimSpace(document) == "" {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", false
	}

	want := strings.ToLower(target)
	var href string
	doc.Find("a.search_result_title").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		title, ok := a.Attr("title")
		if !ok {
			return true
		}
		if fuzzy.PartialRatio(strings.ToLower(title), want) > matchThreshold {
			href, _ = a.Attr("href")
			return false
		}
		return true
	})

	return href, href != ""
}
