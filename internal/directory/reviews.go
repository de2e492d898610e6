package directory

import (
	"github.com/FranksOps/bizcrawl/internal/business"
	"github.com/tidwall/gjson"
)

// DefaultReviewCount is the number of reviews kept per business when no
// explicit cap is configured.
const DefaultReviewCount = 5

// ParseReviews reads the {reviews: [...]} payload of a review feed and keeps
// the first limit entries in upstream order. An empty feed yields an empty,
// non-nil slice.
func ParseReviews(body []byte, limit int) ([]business.Review, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed("reviews", "body is not valid JSON")
	}

	list := gjson.GetBytes(body, "reviews")
	if !list.IsArray() {
		return nil, malformed("reviews", "reviews is missing or not an array")
	}

	if limit < 0 {
		limit = 0
	}

	entries := list.Array()
	if len(entries) > limit {
		entries = entries[:limit]
	}

	reviews := make([]business.Review, 0, len(entries))
	for _, r := range entries {
		if !r.IsObject() {
			return nil, malformed("reviews", "review entry is not an object")
		}
		reviews = append(reviews, business.Review{
			ReviewerName:     r.Get("user.markupDisplayName").String(),
			ReviewerLocation: r.Get("user.displayLocation").String(),
			Date:             r.Get("localizedDate").String(),
		})
	}

	return reviews, nil
}
