package directory

import (
	"github.com/FranksOps/bizcrawl/internal/business"
	"github.com/tidwall/gjson"
)

const (
	resultsPath    = "searchPageProps.mainContentComponentsListProps"
	paginationType = "pagination"
)

// SearchPage is the extracted content of one search response.
type SearchPage struct {
	Listings   []business.Listing
	Pagination PaginationInfo
	// Skipped counts entries dropped by the organic filter or because a
	// listing field had the wrong type.
	Skipped int
}

// ParseSearchPage extracts organic listings and pagination from a search
// payload shaped as {searchPageProps: {mainContentComponentsListProps: [...]}}.
func ParseSearchPage(body []byte) (*SearchPage, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed("search", "body is not valid JSON")
	}

	list := gjson.GetBytes(body, resultsPath)
	if !list.IsArray() {
		return nil, malformed("search", resultsPath+" is missing or not an array")
	}
	entries := list.Array()

	pagination, err := FindPagination(entries)
	if err != nil {
		return nil, err
	}

	organic := FilterResults(entries)
	page := &SearchPage{
		Listings:   make([]business.Listing, 0, len(organic)),
		Pagination: pagination,
		Skipped:    len(entries) - len(organic),
	}
	for _, entry := range organic {
		l, ok := listingFrom(entry)
		if !ok {
			page.Skipped++
			continue
		}
		page.Listings = append(page.Listings, l)
	}

	return page, nil
}

// FilterResults returns, in upstream order, the entries that carry a
// business id and whose nested ad flag is exactly false. Anything else,
// including pagination blocks and sponsored results, is dropped.
func FilterResults(entries []gjson.Result) []gjson.Result {
	var organic []gjson.Result
	for _, e := range entries {
		id := e.Get("bizId")
		if id.Type != gjson.String || id.Str == "" {
			continue
		}
		if e.Get("searchResultBusiness.isAd").Type != gjson.False {
			continue
		}
		organic = append(organic, e)
	}
	return organic
}

// FindPagination locates the single entry whose type is "pagination" and
// reads its props.
func FindPagination(entries []gjson.Result) (PaginationInfo, error) {
	for _, e := range entries {
		if e.Get("type").String() != paginationType {
			continue
		}

		props := e.Get("props")
		if !props.IsObject() {
			return PaginationInfo{}, malformed("search", "pagination entry has no props")
		}

		var fields [3]int
		for i, name := range []string{"startResult", "resultsPerPage", "totalResults"} {
			v := props.Get(name)
			if v.Type != gjson.Number {
				return PaginationInfo{}, malformed("search", "pagination "+name+" is not a number")
			}
			fields[i] = int(v.Int())
		}

		return PaginationInfo{
			StartResult:    fields[0],
			ResultsPerPage: fields[1],
			TotalResults:   fields[2],
		}, nil
	}

	return PaginationInfo{}, malformed("search", "no pagination entry")
}

// listingFrom reads an organic entry. Optional fields may be absent or null
// but must have the expected JSON type when set.
func listingFrom(entry gjson.Result) (business.Listing, bool) {
	id := entry.Get("bizId").Str
	biz := entry.Get("searchResultBusiness")
	if !biz.IsObject() {
		return business.Listing{}, false
	}
	for name, want := range listingFieldTypes {
		if v := biz.Get(name); v.Exists() && v.Type != gjson.Null && v.Type != want {
			return business.Listing{}, false
		}
	}

	rel := biz.Get("businessUrl").String()
	if rel == "" {
		rel = "/biz/" + id
	}

	return business.Listing{
		ID:          id,
		Name:        biz.Get("name").String(),
		RelativeURL: rel,
		Rating:      biz.Get("rating").Float(),
		ReviewCount: int(biz.Get("reviewCount").Int()),
		Phone:       biz.Get("phone").String(),
		IsAd:        biz.Get("isAd").Bool(),
	}, true
}

var listingFieldTypes = map[string]gjson.Type{
	"name":        gjson.String,
	"businessUrl": gjson.String,
	"phone":       gjson.String,
	"rating":      gjson.Number,
	"reviewCount": gjson.Number,
}
