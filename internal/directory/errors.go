package directory

import "fmt"

// MalformedPageError reports an upstream payload whose shape does not match
// what the extractors expect. It is never retried.
type MalformedPageError struct {
	Page   string // "search", "reviews" or "business"
	Reason string
	Err    error
}

func (e *MalformedPageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s page: %s: %v", e.Page, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s page: %s", e.Page, e.Reason)
}

func (e *MalformedPageError) Unwrap() error { return e.Err }

func malformed(page, reason string) error {
	return &MalformedPageError{Page: page, Reason: reason}
}
