package models

import "time"

// Document id prefixes, one per stored collection.
const (
	PrefixPrice        = "p"
	PrefixListing      = "l"
	PrefixOrder        = "o"
	PrefixConversation = "c"
	PrefixMessage      = "m"
)

// DateLayout is the calendar date format used by availableFrom and price dates.
const DateLayout = "2006-01-02"

// Millis converts t to Unix epoch milliseconds, the timestamp unit of the stored documents.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// DateOf formats t as a UTC calendar date.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
