package directory

import (
	"errors"
	"testing"

	"github.com/tidwall/gjson"
)

const searchFixture = `{
  "searchPageProps": {
    "mainContentComponentsListProps": [
      {"type": "header", "props": {"title": "Contractors"}},
      {"bizId": "ad1", "searchResultBusiness": {"name": "Sponsored Co", "businessUrl": "/adredir?x=1", "isAd": true}},
      {"bizId": "x1", "searchResultBusiness": {"name": "Acme", "businessUrl": "/biz/acme-sf", "rating": 4.5, "reviewCount": 120, "phone": "(415) 555-0100", "isAd": false}},
      {"bizId": "", "searchResultBusiness": {"name": "No Id", "isAd": false}},
      {"searchResultBusiness": {"name": "Missing Id", "isAd": false}},
      {"bizId": "x2", "searchResultBusiness": {"name": "Bolt", "businessUrl": "/biz/bolt-sf?osq=Contractors", "rating": 3, "reviewCount": 7, "phone": "", "isAd": false}},
      {"bizId": "x3", "searchResultBusiness": {"name": "Ad Unknown"}},
      {"type": "pagination", "props": {"startResult": 0, "resultsPerPage": 10, "totalResults": 25}}
    ]
  }
}`

func TestParseSearchPage(t *testing.T) {
	page, err := ParseSearchPage([]byte(searchFixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page.Listings) != 2 {
		t.Fatalf("expected 2 organic listings, got %d: %+v", len(page.Listings), page.Listings)
	}

	first := page.Listings[0]
	if first.ID != "x1" || first.Name != "Acme" || first.RelativeURL != "/biz/acme-sf" {
		t.Errorf("unexpected first listing: %+v", first)
	}
	if first.Rating != 4.5 || first.ReviewCount != 120 || first.Phone != "(415) 555-0100" {
		t.Errorf("unexpected first listing numbers: %+v", first)
	}
	if page.Listings[1].ID != "x2" {
		t.Errorf("expected upstream order preserved, got %s second", page.Listings[1].ID)
	}

	want := PaginationInfo{StartResult: 0, ResultsPerPage: 10, TotalResults: 25}
	if page.Pagination != want {
		t.Errorf("expected pagination %+v, got %+v", want, page.Pagination)
	}
	if page.Skipped != 6 {
		t.Errorf("expected 6 skipped entries, got %d", page.Skipped)
	}
}

func TestFilterResults_ExcludesAds(t *testing.T) {
	entries := gjson.Parse(`[
		{"bizId": "x1", "searchResultBusiness": {"isAd": true}},
		{"bizId": "o1", "searchResultBusiness": {"isAd": false}},
		{"bizId": "x2", "searchResultBusiness": {"isAd": "false"}},
		{"bizId": "o2", "searchResultBusiness": {"isAd": false}}
	]`).Array()

	got := FilterResults(entries)
	if len(got) != 2 {
		t.Fatalf("expected 2 organic entries, got %d", len(got))
	}
	for i, id := range []string{"o1", "o2"} {
		if got[i].Get("bizId").String() != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].Get("bizId").String())
		}
	}
}

func TestParseSearchPage_Malformed(t *testing.T) {
	tests := map[string]string{
		"not json":           `<html>blocked</html>`,
		"missing props":      `{"foo": 1}`,
		"list not array":     `{"searchPageProps": {"mainContentComponentsListProps": {}}}`,
		"no pagination":      `{"searchPageProps": {"mainContentComponentsListProps": [{"bizId": "x1", "searchResultBusiness": {"isAd": false}}]}}`,
		"pagination no data": `{"searchPageProps": {"mainContentComponentsListProps": [{"type": "pagination"}]}}`,
		"pagination string":  `{"searchPageProps": {"mainContentComponentsListProps": [{"type": "pagination", "props": {"startResult": "0", "resultsPerPage": 10, "totalResults": 5}}]}}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSearchPage([]byte(body))
			var mpe *MalformedPageError
			if !errors.As(err, &mpe) {
				t.Fatalf("expected MalformedPageError, got %v", err)
			}
			if mpe.Page != "search" {
				t.Errorf("expected search page, got %q", mpe.Page)
			}
		})
	}
}

func TestParseSearchPage_SkipsMistypedListings(t *testing.T) {
	body := `{"searchPageProps": {"mainContentComponentsListProps": [
		{"bizId": "x1", "searchResultBusiness": {"name": "Acme", "rating": 4.5, "reviewCount": 12, "isAd": false}},
		{"bizId": "x2", "searchResultBusiness": {"name": "Bolt", "rating": "4.5", "isAd": false}},
		{"bizId": "x3", "searchResultBusiness": {"name": "Crane", "reviewCount": "many", "isAd": false}},
		{"bizId": "x4", "searchResultBusiness": {"name": ["Delta"], "isAd": false}},
		{"bizId": "x5", "searchResultBusiness": {"name": "Echo", "phone": 5550100, "isAd": false}},
		{"bizId": "x6", "searchResultBusiness": "Foxtrot"},
		{"bizId": "x7", "searchResultBusiness": {"name": "Golf", "rating": null, "phone": null, "isAd": false}},
		{"type": "pagination", "props": {"startResult": 0, "resultsPerPage": 10, "totalResults": 7}}
	]}}`

	page, err := ParseSearchPage([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []string
	for _, l := range page.Listings {
		ids = append(ids, l.ID)
	}
	if len(ids) != 2 || ids[0] != "x1" || ids[1] != "x7" {
		t.Fatalf("expected x1 and x7 to survive, got %v", ids)
	}
	if page.Listings[1].Rating != 0 || page.Listings[1].Phone != "" {
		t.Errorf("expected null fields to read as zero values, got %+v", page.Listings[1])
	}
	// five mistyped listings plus the pagination entry
	if page.Skipped != 6 {
		t.Errorf("expected 6 skipped entries, got %d", page.Skipped)
	}
}

func TestParseSearchPage_MissingBusinessURL(t *testing.T) {
	body := `{"searchPageProps": {"mainContentComponentsListProps": [
		{"bizId": "x9", "searchResultBusiness": {"name": "Nameless", "isAd": false}},
		{"type": "pagination", "props": {"startResult": 0, "resultsPerPage": 10, "totalResults": 1}}
	]}}`

	page, err := ParseSearchPage([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Listings[0].RelativeURL != "/biz/x9" {
		t.Errorf("expected fallback url /biz/x9, got %s", page.Listings[0].RelativeURL)
	}
}
