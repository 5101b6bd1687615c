package plans

import "github.com/nxtgenia/miniaturia/miniaturia/catalog"

type Item struct {
	Key        string         `json:"key"`
	Name       string         `json:"name"`
	Price      string         `json:"price"`
	PriceCents int64          `json:"price_cents"`
	Currency   string         `json:"currency"`
	Credits    int            `json:"credits"`
	Interval   catalog.Period `json:"interval,omitempty"`
}

type Response struct {
	Plans []Item `json:"plans"`
	Packs []Item `json:"packs"`
}
