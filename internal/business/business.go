// Package business holds the data carried from a directory listing to the
// final output row.
package business

// Listing is the raw per-business data read off one organic search result.
type Listing struct {
	ID          string
	Name        string
	RelativeURL string
	Rating      float64
	ReviewCount int
	Phone       string
	IsAd        bool
}

// Review is one retained entry from a business's review feed.
type Review struct {
	ReviewerName     string `json:"reviewer_name"`
	ReviewerLocation string `json:"reviewer_location"`
	Date             string `json:"date"`
}

// Record is the final projection of a fully crawled business. It carries no
// business id.
type Record struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
	Phone       string   `json:"phone"`
	Website     *string  `json:"website"`
	Reviews     []Review `json:"reviews"`
}
