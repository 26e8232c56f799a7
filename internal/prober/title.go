package prober

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractTitle returns the text of the first <title> element of an HTML
// body, trimmed. Missing titles and unparseable bodies both yield "";
// title extraction never fails a probe.
func ExtractTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
