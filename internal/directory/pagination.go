package directory

// PaginationInfo is the pagination block reported by one search page.
type PaginationInfo struct {
	StartResult    int
	ResultsPerPage int
	TotalResults   int
}

// NextOffset returns the start offset of the page following p.
func NextOffset(p PaginationInfo) int {
	return p.StartResult + p.ResultsPerPage
}

// HasMore reports whether another search page should be requested after p.
// maxPages is an exclusive upper bound on the 1-based page index, so a cap
// of 1 only ever fetches the first page. A zero ResultsPerPage means the
// upstream block is unusable and stops pagination.
func HasMore(p PaginationInfo, pagesRequested, maxPages int) bool {
	if p.ResultsPerPage <= 0 {
		return false
	}
	if pagesRequested >= maxPages {
		return false
	}

	page := p.StartResult/p.ResultsPerPage + 1
	remaining := p.TotalResults - p.StartResult

	return page < maxPages && remaining > p.ResultsPerPage
}
