package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"math"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/bizcrawl/internal/storage"
	"github.com/dustin/go-humanize"
)

// topN bounds the most-reviewed table.
const topN = 5

// Business is one row of the most-reviewed table.
type Business struct {
	Name        string
	URL         string
	Rating      float64
	ReviewCount int
}

// Summary contains aggregated figures about stored business records.
type Summary struct {
	Runs            []string
	TotalBusinesses int
	WithWebsite     int
	TotalReviews    int
	MeanRating      float64
	// RatingHistogram counts businesses by whole star (4.5 counts as 4).
	RatingHistogram map[int]int
	MostReviewed    []Business
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// Summarize aggregates records into a Summary.
func Summarize(records []*storage.Record) Summary {
	s := Summary{
		Runs:            []string{},
		RatingHistogram: make(map[int]int),
		MostReviewed:    []Business{},
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	runs := make(map[string]struct{})
	var ratingSum float64
	all := make([]Business, 0, len(records))

	for _, r := range records {
		s.TotalBusinesses++
		if r.Website != nil {
			s.WithWebsite++
		}
		s.TotalReviews += len(r.Reviews)
		ratingSum += r.Rating
		s.RatingHistogram[int(math.Floor(r.Rating))]++

		if _, ok := runs[r.RunID]; !ok && r.RunID != "" {
			runs[r.RunID] = struct{}{}
			s.Runs = append(s.Runs, r.RunID)
		}

		all = append(all, Business{Name: r.Name, URL: r.URL, Rating: r.Rating, ReviewCount: r.ReviewCount})

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.MeanRating = ratingSum / float64(s.TotalBusinesses)
	s.Duration = s.EndTime.Sub(s.StartTime)

	sort.Strings(s.Runs)
	sort.SliceStable(all, func(i, j int) bool { return all[i].ReviewCount > all[j].ReviewCount })
	if len(all) > topN {
		all = all[:topN]
	}
	s.MostReviewed = all

	return s
}

// histogramRow is one star bucket, listed from 5 down to 0.
type histogramRow struct {
	Stars int
	Count int
}

func (s Summary) histogram() []histogramRow {
	rows := make([]histogramRow, 0, 6)
	for stars := 5; stars >= 0; stars-- {
		rows = append(rows, histogramRow{Stars: stars, Count: s.RatingHistogram[stars]})
	}
	return rows
}

var funcs = map[string]any{
	"comma":  func(n int) string { return humanize.Comma(int64(n)) },
	"rating": func(f float64) string { return humanize.FormatFloat("#.##", f) },
	"pct": func(part, total int) string {
		if total == 0 {
			return "0%"
		}
		return humanize.FormatFloat("#.#", 100*float64(part)/float64(total)) + "%"
	},
}

type view struct {
	Summary
	Histogram []histogramRow
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Bizcrawl Summary
----------------
Runs:          {{range $i, $r := .Runs}}{{if $i}}, {{end}}{{$r}}{{else}}none{{end}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Businesses:    {{comma .TotalBusinesses}}
With Website:  {{comma .WithWebsite}} ({{pct .WithWebsite .TotalBusinesses}})
Reviews:       {{comma .TotalReviews}}
Mean Rating:   {{rating .MeanRating}}

Ratings:
{{- range .Histogram}}
  {{.Stars}} stars: {{comma .Count}}
{{- end}}

Most Reviewed:
{{- range .MostReviewed}}
  {{.Name}} ({{rating .Rating}}, {{comma .ReviewCount}} reviews) {{.URL}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}

	if err := t.Execute(w, view{Summary: summary, Histogram: summary.histogram()}); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer. Business
// names come from upstream pages and are escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Bizcrawl Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Bizcrawl Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Businesses</div>
    <div class="stat-val">{{comma .TotalBusinesses}}</div>
  </div>
  <div class="stat-card">
    <div>With Website</div>
    <div class="stat-val">{{pct .WithWebsite .TotalBusinesses}}</div>
  </div>
  <div class="stat-card">
    <div>Reviews</div>
    <div class="stat-val">{{comma .TotalReviews}}</div>
  </div>
  <div class="stat-card">
    <div>Mean Rating</div>
    <div class="stat-val">{{rating .MeanRating}}</div>
  </div>

  <h3>Ratings</h3>
  <table>
    <tr><th>Stars</th><th>Businesses</th></tr>
    {{- range .Histogram}}
    <tr><td>{{.Stars}}</td><td>{{comma .Count}}</td></tr>
    {{- end}}
  </table>

  <h3>Most Reviewed</h3>
  <table>
    <tr><th>Name</th><th>Rating</th><th>Reviews</th></tr>
    {{- range .MostReviewed}}
    <tr><td><a href="{{.URL}}">{{.Name}}</a></td><td>{{rating .Rating}}</td><td>{{comma .ReviewCount}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Funcs(funcs).Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}

	if err := t.Execute(w, view{Summary: summary, Histogram: summary.histogram()}); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}

	return nil
}
