package catalog

import (
	"encoding/json"
	"errors"
)

var ErrUnknownKey = errors.New("unknown plan key")

// subscription tier an account is on
type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
	PlanAgency  Plan = "agency"
)

// billing interval of a subscription
type Period string

const (
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	// packs are one-time purchases
	PeriodNone Period = ""
)

// free accounts have no period; clients expect null
func (p Period) MarshalJSON() ([]byte, error) {
	if p == PeriodNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

// a purchasable entry: a recurring plan or a one-time credit pack
type Entry struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Credits    int    `json:"credits"`
	Interval   Period `json:"interval,omitempty"`
}

// what an entry key resolves to for the ledger
type PlanSelection struct {
	Plan   Plan
	Period Period
}
