package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const packPrefix = "pack_"

var entries = []Entry{
	{Key: "starter_monthly", Name: "Starter Mensual", PriceCents: 1999, Credits: 400, Interval: PeriodMonth},
	{Key: "starter_annual", Name: "Starter Anual", PriceCents: 19900, Credits: 4500, Interval: PeriodYear},
	{Key: "pro_monthly", Name: "Pro Mensual", PriceCents: 3999, Credits: 900, Interval: PeriodMonth},
	{Key: "pro_annual", Name: "Pro Anual", PriceCents: 39900, Credits: 9000, Interval: PeriodYear},
	{Key: "agency_monthly", Name: "Agency Mensual", PriceCents: 7999, Credits: 1800, Interval: PeriodMonth},
	{Key: "agency_annual", Name: "Agency Anual", PriceCents: 79900, Credits: 18000, Interval: PeriodYear},
	{Key: "pack_micro", Name: "Pack Micro", PriceCents: 499, Credits: 50},
	{Key: "pack_basic", Name: "Pack Basic", PriceCents: 799, Credits: 100},
	{Key: "pack_plus", Name: "Pack Plus", PriceCents: 1499, Credits: 250},
	{Key: "pack_boost", Name: "Pack Boost", PriceCents: 2499, Credits: 500},
	{Key: "pack_ultra", Name: "Pack Ultra", PriceCents: 4499, Credits: 1000},
}

var byKey = func() map[string]Entry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Key] = e
	}
	return m
}()

// returns every catalog entry in display order
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// returns only the recurring plans
func Plans() []Entry {
	var out []Entry
	for _, e := range entries {
		if !e.IsPack() {
			out = append(out, e)
		}
	}
	return out
}

// returns only the one-time packs
func Packs() []Entry {
	var out []Entry
	for _, e := range entries {
		if e.IsPack() {
			out = append(out, e)
		}
	}
	return out
}

func Lookup(key string) (Entry, bool) {
	e, ok := byKey[key]
	return e, ok
}

// reports whether key names a one-time credit pack
func IsPack(key string) bool {
	return strings.HasPrefix(key, packPrefix)
}

func (e Entry) IsPack() bool {
	return IsPack(e.Key)
}

// price in euros with two decimals, e.g. "19.99"
func (e Entry) DisplayPrice() string {
	return decimal.New(e.PriceCents, -2).StringFixed(2)
}

// splits "<tier>_<monthly|annual>" into plan and period
func ParsePlanKey(key string) (PlanSelection, error) {
	if IsPack(key) {
		return PlanSelection{}, fmt.Errorf("%w: %q is a pack", ErrUnknownKey, key)
	}

	tier, interval, ok := strings.Cut(key, "_")
	if !ok {
		return PlanSelection{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	var sel PlanSelection
	switch Plan(tier) {
	case PlanStarter, PlanPro, PlanAgency:
		sel.Plan = Plan(tier)
	default:
		return PlanSelection{}, fmt.Errorf("%w: tier %q", ErrUnknownKey, tier)
	}

	switch interval {
	case "monthly":
		sel.Period = PeriodMonth
	case "annual":
		sel.Period = PeriodYear
	default:
		return PlanSelection{}, fmt.Errorf("%w: interval %q", ErrUnknownKey, interval)
	}

	return sel, nil
}

// reports whether key exists in the catalog
func Valid(key string) bool {
	_, ok := byKey[key]
	return ok
}
