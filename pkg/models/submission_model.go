package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
)

type RecipientPayload struct {
	Institution       string `json:"institution"`
	AccountIdentifier string `json:"accountIdentifier"`
	AccountName       string `json:"accountName"`
	Memo              string `json:"memo"`
}

// SubmissionPayload is the record that gets encrypted for the payment aggregator. Field order is the wire order.
type SubmissionPayload struct {
	Amount         string           `json:"amount"`
	AmountReceived string           `json:"amountReceived"`
	Token          string           `json:"token"`
	Network        string           `json:"network"`
	Currency       string           `json:"currency"`
	Rate           string           `json:"rate"`
	Recipient      RecipientPayload `json:"recipient"`
}

// NewSubmissionPayload snapshots the submitted values of a form. The rate is empty when none was usable.
func NewSubmissionPayload(form swap.Form) SubmissionPayload {
	rate := ""
	if v, ok := form.Rate.Usable(); ok {
		rate = v.String()
	}
	return SubmissionPayload{
		Amount:         form.Amounts.Sent.Value,
		AmountReceived: form.Amounts.Received.Value,
		Token:          form.Selection.Token,
		Network:        form.Network,
		Currency:       form.Selection.Currency,
		Rate:           rate,
		Recipient: RecipientPayload{
			Institution:       form.Recipient.Institution,
			AccountIdentifier: form.Recipient.AccountIdentifier,
			AccountName:       form.Recipient.AccountName,
			Memo:              form.Recipient.Memo,
		},
	}
}

// SubmissionRecord is one audited submit attempt. It never carries the recipient or the ciphertext.
type SubmissionRecord struct {
	ID             uuid.UUID            `json:"id"`
	FormID         uuid.UUID            `json:"formId"`
	TraceID        string               `json:"traceId"`
	Status         pkg.SubmissionStatus `json:"status"`
	Network        string               `json:"network"`
	Token          string               `json:"token"`
	Currency       string               `json:"currency"`
	Amount         string               `json:"amount"`
	AmountReceived string               `json:"amountReceived"`
	Rate           string               `json:"rate"`
	Reason         string               `json:"reason,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// NewSubmissionRecord describes an attempt on form with the given outcome.
func NewSubmissionRecord(form swap.Form, traceID string, status pkg.SubmissionStatus, reason string, now time.Time) SubmissionRecord {
	payload := NewSubmissionPayload(form)
	return SubmissionRecord{
		ID:             uuid.New(),
		FormID:         form.ID,
		TraceID:        traceID,
		Status:         status,
		Network:        payload.Network,
		Token:          payload.Token,
		Currency:       payload.Currency,
		Amount:         payload.Amount,
		AmountReceived: payload.AmountReceived,
		Rate:           payload.Rate,
		Reason:         reason,
		CreatedAt:      now,
	}
}
