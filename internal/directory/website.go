package directory

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RedirectPathPrefix marks on-page anchors that forward to a business's own
// website.
const RedirectPathPrefix = "/biz_redir"

// ExtractWebsite returns the external website carried in the url parameter
// of the first redirect anchor on a business page, or nil when the page
// lists no website.
func ExtractWebsite(body []byte) (*string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &MalformedPageError{Page: "business", Reason: "parse html", Err: err}
	}

	var website *string
	doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || !strings.HasPrefix(u.Path, RedirectPathPrefix) {
			return true
		}

		if target := u.Query().Get("url"); target != "" {
			website = &target
		}
		return false
	})

	return website, nil
}
