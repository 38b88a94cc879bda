package profile

import "time"

// Listing is a published catalog profile.
type Listing struct {
	ID          string
	OwnerID     string
	Name        string
	Age         int
	City        string
	Verified    bool
	Elite       bool
	Price       float64
	Ethnicity   string
	Nationality string
	Lat         float64
	Lng         float64
	Photos      []string
	Description string
	Views       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListFilter narrows List results. Zero values leave the dimension open.
type ListFilter struct {
	City     string
	Verified *bool
	Elite    *bool
	Search   string
	Limit    int
}

// CreateParams enumerates the required fields to publish a listing.
type CreateParams struct {
	OwnerID     string
	Name        string
	Age         int
	City        string
	Price       float64
	Ethnicity   string
	Nationality string
	Lat         float64
	Lng         float64
	Photos      []string
	Description string
}

// UpdateParams carries mutable listing fields. Nil pointers keep the stored
// value.
type UpdateParams struct {
	Name        *string
	Age         *int
	City        *string
	Price       *float64
	Description *string
	Photos      []string
	Lat         *float64
	Lng         *float64
}
