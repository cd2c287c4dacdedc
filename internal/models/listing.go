package models

// Listing is a published offer to sell (or buy) a quantity of a crop.
// Listings are append-only once created.
type Listing struct {
	ID            string   `json:"id"`
	OwnerName     string   `json:"name"`
	OwnerRole     Role     `json:"role"`
	Crop          string   `json:"crop"`
	Grade         string   `json:"grade"`
	Quantity      float64  `json:"qty"`
	Unit          string   `json:"unit"`
	Price         *float64 `json:"price"` // nil means negotiable
	AvailableFrom string   `json:"available_from"`
	Location      string   `json:"location"`
	Notes         string   `json:"notes"`
	CreatedAt     int64    `json:"created"` // epoch millis
}

func (l Listing) GetID() string { return l.ID }

// HasPrice reports whether the listing fixes a unit price. A zero price counts
// as negotiable, the same as an absent one.
func (l Listing) HasPrice() bool {
	return l.Price != nil && *l.Price > 0
}
