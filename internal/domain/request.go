package domain

import "time"

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// TimeRange is an inclusive [Start, End] window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// DayRange returns the UTC calendar day containing t.
func DayRange(t time.Time) TimeRange {
	start := StartOfDay(t)
	return TimeRange{
		Start: start,
		End:   start.Add(24*time.Hour - time.Millisecond),
	}
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ArticleQuery carries the filters of a stream or query request.
// A zero Category means no category filter.
type ArticleQuery struct {
	Date     time.Time
	Category Category
}

// IngestReport summarises one ingestion batch.
type IngestReport struct {
	Date       string `json:"date"`
	Fetched    int    `json:"fetched"`
	Saved      int    `json:"saved"`
	Duplicates int    `json:"duplicates"`
	Failed     int    `json:"failed"`
}
