package swap

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places a derived amount is rounded to.
const AmountScale int32 = 2

// ActiveField names the amount field the user edited last; the other one is derived.
type ActiveField int

const (
	SentActive ActiveField = iota
	ReceivedActive
)

func (a ActiveField) String() string {
	if a == ReceivedActive {
		return FieldReceived
	}
	return FieldSent
}

// ParseActiveField accepts the field names used on the wire ("sent", "received").
func ParseActiveField(s string) (ActiveField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case FieldSent:
		return SentActive, nil
	case FieldReceived:
		return ReceivedActive, nil
	default:
		return SentActive, fmt.Errorf("unknown amount field %q", s)
	}
}

// AmountField holds an amount entry as typed by the user or as written by the synchronizer.
type AmountField struct {
	Value  string `json:"value"`
	Active bool   `json:"active"`
}

// Present reports whether the field holds any entry at all.
func (f AmountField) Present() bool {
	return strings.TrimSpace(f.Value) != ""
}

// Decimal parses the entry. An empty entry is zero; an entry that is not a number is rejected.
func (f AmountField) Decimal() (decimal.Decimal, bool) {
	return parseEntry(f.Value)
}

func parseEntry(value string) (decimal.Decimal, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
