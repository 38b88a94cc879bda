package favorite

import "time"

// Favorite links a user to a saved listing.
type Favorite struct {
	UserID    string
	ListingID string
	CreatedAt time.Time
}
