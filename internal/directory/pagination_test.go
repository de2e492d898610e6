package directory

import "testing"

func TestNextOffset(t *testing.T) {
	for _, p := range []PaginationInfo{
		{StartResult: 0, ResultsPerPage: 10, TotalResults: 25},
		{StartResult: 10, ResultsPerPage: 10, TotalResults: 25},
		{StartResult: 30, ResultsPerPage: 30, TotalResults: 240},
	} {
		if got := NextOffset(p); got != p.StartResult+p.ResultsPerPage {
			t.Errorf("NextOffset(%+v) = %d, want %d", p, got, p.StartResult+p.ResultsPerPage)
		}
	}
}

func TestHasMore(t *testing.T) {
	tests := []struct {
		name           string
		p              PaginationInfo
		pagesRequested int
		maxPages       int
		want           bool
	}{
		{"more results under cap", PaginationInfo{0, 10, 25}, 1, 3, true},
		{"cap of one", PaginationInfo{0, 10, 25}, 1, 1, false},
		{"cap of one huge total", PaginationInfo{0, 10, 100000}, 1, 1, false},
		{"second page under cap", PaginationInfo{10, 10, 25}, 2, 3, true},
		{"page index reaches cap", PaginationInfo{20, 10, 100}, 2, 3, false},
		{"last partial page", PaginationInfo{20, 10, 25}, 3, 10, false},
		{"exactly one page left", PaginationInfo{10, 10, 20}, 2, 10, false},
		{"requested count reaches cap", PaginationInfo{0, 10, 100}, 3, 3, false},
		{"zero per page", PaginationInfo{0, 0, 100}, 1, 10, false},
		{"negative per page", PaginationInfo{0, -5, 100}, 1, 10, false},
		{"no results", PaginationInfo{0, 10, 0}, 1, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasMore(tt.p, tt.pagesRequested, tt.maxPages); got != tt.want {
				t.Errorf("HasMore(%+v, %d, %d) = %v, want %v", tt.p, tt.pagesRequested, tt.maxPages, got, tt.want)
			}
		})
	}
}

func TestHasMore_FirstPageScenario(t *testing.T) {
	p := PaginationInfo{StartResult: 0, ResultsPerPage: 10, TotalResults: 25}
	if !HasMore(p, 1, 3) {
		t.Fatal("expected another page")
	}
	if next := NextOffset(p); next != 10 {
		t.Errorf("expected next start 10, got %d", next)
	}
}
