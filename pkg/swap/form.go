package swap

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrFieldDisabled = errors.New("field is disabled")

// Selection is the source token and destination currency; empty means unset.
type Selection struct {
	Token    string `json:"token,omitempty"`
	Currency string `json:"currency,omitempty"`
}

func (s Selection) HasToken() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Complete reports whether both token and currency are selected.
func (s Selection) Complete() bool {
	return s.HasToken() && strings.TrimSpace(s.Currency) != ""
}

type Recipient struct {
	Institution       string `json:"institution"`
	AccountIdentifier string `json:"accountIdentifier"`
	AccountName       string `json:"accountName"`
	Memo              string `json:"memo"`
}

// Form is the state of one conversion form from creation until it is submitted or discarded.
type Form struct {
	ID        uuid.UUID    `json:"id"`
	Network   string       `json:"network"`
	Selection Selection    `json:"selection"`
	Amounts   Synchronizer `json:"amounts"`
	Recipient Recipient    `json:"recipient"`
	Rate      Rate         `json:"rate"`
	Dirty     bool         `json:"dirty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// NewForm returns a pristine form with the default token selected and no currency.
func NewForm(id uuid.UUID, network, defaultToken string, now time.Time) Form {
	return Form{
		ID:        id,
		Network:   network,
		Selection: Selection{Token: defaultToken},
		Amounts:   NewSynchronizer(),
		Rate:      UnknownRate(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset discards everything the user entered and keeps identity, network and token selection.
func (f *Form) Reset(now time.Time) {
	*f = Form{
		ID:        f.ID,
		Network:   f.Network,
		Selection: Selection{Token: f.Selection.Token},
		Amounts:   NewSynchronizer(),
		Rate:      UnknownRate(),
		CreatedAt: f.CreatedAt,
		UpdatedAt: now,
	}
}

// FieldEnabled mirrors the enabled conditions of the amount rules.
func (f *Form) FieldEnabled(field ActiveField) bool {
	if field == ReceivedActive {
		return f.Selection.Complete()
	}
	return f.Selection.HasToken()
}

// EditAmount applies a user edit to one of the amount fields and recomputes the other one
// from the last observed rate.
func (f *Form) EditAmount(field ActiveField, value string) error {
	if !f.FieldEnabled(field) {
		return ErrFieldDisabled
	}
	f.Amounts.Edit(field, value)
	f.Dirty = true
	f.Amounts.Recompute(f.Rate)
	return nil
}

// ObserveRate stores the latest rate snapshot and recomputes. An unusable rate leaves the amounts as they are.
func (f *Form) ObserveRate(rate Rate) bool {
	f.Rate = rate
	return f.Amounts.Recompute(rate)
}

// SelectToken changes the source asset. Selection changes never trigger a recompute.
func (f *Form) SelectToken(token string) {
	f.Selection.Token = strings.TrimSpace(token)
}

func (f *Form) SelectCurrency(currency string) {
	f.Selection.Currency = strings.TrimSpace(currency)
}

func (f *Form) SetRecipient(r Recipient) {
	f.Recipient = r
	f.Dirty = true
}

// ApplyMax sets sent to the full balance of the selected token and makes sent the active field,
// so the next recompute targets received. Without a balance for the token it does nothing.
func (f *Form) ApplyMax(balances BalanceMap) bool {
	balance, ok := ResolveMax(f.Selection, balances)
	if !ok {
		return false
	}
	f.Amounts.Edit(SentActive, balance.String())
	f.Dirty = true
	f.Amounts.Recompute(f.Rate)
	return true
}

func (f *Form) Values() Values {
	return Values{
		Sent:              f.Amounts.Sent.Value,
		Received:          f.Amounts.Received.Value,
		Memo:              f.Recipient.Memo,
		Institution:       f.Recipient.Institution,
		AccountIdentifier: f.Recipient.AccountIdentifier,
		Selection:         f.Selection,
	}
}

func (f *Form) Validate(v *Validator) Report {
	return v.Validate(f.Values())
}

func (f *Form) Submittable(v *Validator) bool {
	return Submittable(f.Validate(v), f.Dirty)
}
