package swap

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateState is the observable state of the conversion rate.
type RateState int

const (
	RateUnknown RateState = iota
	RatePending
	RateUsable
)

func (s RateState) String() string {
	switch s {
	case RatePending:
		return "pending"
	case RateUsable:
		return "usable"
	default:
		return "unknown"
	}
}

func (s RateState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RateState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unknown", "":
		*s = RateUnknown
	case "pending":
		*s = RatePending
	case "usable":
		*s = RateUsable
	default:
		return fmt.Errorf("unknown rate state %q", text)
	}
	return nil
}

// Rate is the multiplicative factor from source-asset units to destination-currency units.
// Fetching is true while the provider has a request in flight, including when a stale value is still usable.
type Rate struct {
	State    RateState       `json:"state"`
	Value    decimal.Decimal `json:"value"`
	Fetching bool            `json:"fetching"`
}

func UnknownRate() Rate {
	return Rate{State: RateUnknown}
}

func PendingRate() Rate {
	return Rate{State: RatePending, Fetching: true}
}

// UsableRate returns a usable rate, or Unknown when value is zero or negative.
func UsableRate(value decimal.Decimal) Rate {
	return NewRate(value, false)
}

// NewRate maps a provider snapshot {rate, isFetchingRate} onto the tri-state.
func NewRate(value decimal.Decimal, fetching bool) Rate {
	if value.IsPositive() {
		return Rate{State: RateUsable, Value: value, Fetching: fetching}
	}
	if fetching {
		return PendingRate()
	}
	return UnknownRate()
}

// Usable returns the rate value when it can be used for recomputation.
func (r Rate) Usable() (decimal.Decimal, bool) {
	if r.State != RateUsable || !r.Value.IsPositive() {
		return decimal.Zero, false
	}
	return r.Value, true
}
