package discogs

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Record-page field groups. Each group lives in its own page region and
// uses its own markup shape, so each gets its own lookup.
var (
	profileFields     = []string{"Label", "Format", "Country", "Released", "Genre"}
	statHeadingFields = []string{"Have", "Want", "Last Sold"}
	statPriceFields   = []string{"Lowest", "Median", "Highest"}
)

// DetailColumns lists every extractable detail field in output column
// order, matching the order regions are scanned.
var DetailColumns = []string{
	"Label", "Format", "Country", "Released", "Genre",
	"Have", "Want", "Last Sold",
	"Lowest", "Median", "Highest",
	"Market",
}

// ExtractDetails parses a record page and returns whatever detail
// fields it can find. Partial results are normal: any region or field
// the page lacks is silently skipped, and keys are only present when a
// non-empty value was extracted. An empty or unparseable document
// yields an empty map.
func ExtractDetails(document string) map[string]string {
	details := make(map[string]string)
	if strings.TrimSpace(document) == "" {
		return details
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return details
	}

	profile := doc.Find(".profile").First()
	for _, name := range profileFields {
		label := findByText(profile, "div", name+":")
		if label == nil {
			continue
		}
		if v := joinStrippedText(label.Next()); v != "" {
			details[name] = v
		}
	}

	stats := doc.Find("#statistics").First()
	for _, name := range statHeadingFields {
		heading := findByText(stats, "h4", name+":")
		if heading == nil {
			continue
		}
		if v := strings.TrimSpace(heading.Next().Text()); v != "" {
			details[name] = v
		}
	}
	// Price labels are plain text nodes, not headings: the value sits
	// in the node right after the label's parent element.
	for _, name := range statPriceFields {
		if v := textAfterLabel(stats, name+":"); v != "" {
			details[name] = v
		}
	}

	market := doc.Find(".marketplace_for_sale_count").First()
	count := strings.TrimSpace(market.Find("strong").First().Text())
	price := strings.TrimSpace(market.Find(".price").First().Text())
	if count != "" && price != "" {
		details["Market"] = count + " from " + price
	}

	return details
}

// findByText returns the first descendant of root with the given tag
// whose trimmed text equals want, or nil when absent.
func findByText(root *goquery.Selection, tag, want string) *goquery.Selection {
	var found *goquery.Selection
	root.Find(tag).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == want {
			found = s
			return false
		}
		return true
	})
	return found
}

// joinStrippedText concatenates every non-blank text fragment under
// sel, each trimmed, with no separator.
func joinStrippedText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var parts []string
	for _, node := range sel.Nodes {
		collectStripped(node, &parts)
	}
	return strings.Join(parts, "")
}

func collectStripped(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			*parts = append(*parts, s)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectStripped(c, parts)
	}
}

// textAfterLabel finds the text node under root that equals label and
// returns the trimmed text of the node immediately following that
// label's parent element.
func textAfterLabel(root *goquery.Selection, label string) string {
	for _, top := range root.Nodes {
		if v := searchLabel(top, label); v != "" {
			return v
		}
	}
	return ""
}

func searchLabel(n *html.Node, label string) string {
	if n.Type == html.TextNode && strings.TrimSpace(n.Data) == label {
		parent := n.Parent
		if parent == nil || parent.NextSibling == nil {
			return ""
		}
		return strings.TrimSpace(nodeText(parent.NextSibling))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := searchLabel(c, label); v != "" {
			return v
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
