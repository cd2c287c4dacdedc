package models

// PriceQuote is a market price index entry. The price feed simulator mutates it in place.
type PriceQuote struct {
	ID     string  `json:"id"`
	Crop   string  `json:"crop"`
	Market string  `json:"market"`
	Price  float64 `json:"price"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Date   string  `json:"date"`
}

func (p PriceQuote) GetID() string { return p.ID }
