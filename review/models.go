package review

import "time"

// Review is a rating left by a client on a listing.
type Review struct {
	ID         string
	ListingID  string
	AuthorID   string
	Rating     int
	Text       string
	Helpful    int
	NotHelpful int
	CreatedAt  time.Time
}

// Summary aggregates ratings for a listing.
type Summary struct {
	Count   int
	Average float64
}
