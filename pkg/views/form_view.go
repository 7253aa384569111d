package views

import (
	"time"

	"github.com/nimeshabuddhika/resilient-swap-go/pkg/models"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
)

type AmountView struct {
	Value   string `json:"value"`
	Active  bool   `json:"active"`
	Enabled bool   `json:"enabled"`
}

type RateView struct {
	State    swap.RateState `json:"state"`
	Value    string         `json:"value,omitempty"`
	Fetching bool           `json:"fetching"`
	Summary  string         `json:"summary,omitempty"`
}

type RecipientView struct {
	Institution       string `json:"institution"`
	InstitutionName   string `json:"institutionName,omitempty"`
	AccountIdentifier string `json:"accountIdentifier"`
	AccountName       string `json:"accountName"`
	Memo              string `json:"memo"`
}

// FormView is the client-facing state of a form, including display strings.
type FormView struct {
	ID                string        `json:"id"`
	Network           string        `json:"network"`
	Token             string        `json:"token"`
	Currency          string        `json:"currency"`
	Sent              AmountView    `json:"sent"`
	Received          AmountView    `json:"received"`
	ReceivedFormatted string        `json:"receivedFormatted,omitempty"`
	Rate              RateView      `json:"rate"`
	Recipient         RecipientView `json:"recipient"`
	Dirty             bool          `json:"dirty"`
	Validation        swap.Report   `json:"validation"`
	Submittable       bool          `json:"submittable"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

type SubmissionView struct {
	FormID           string                   `json:"formId"`
	Payload          models.SubmissionPayload `json:"payload"`
	EncryptedPayload string                   `json:"encryptedPayload"`
	Form             FormView                 `json:"form"`
}

type EncryptView struct {
	EncryptedPayload string `json:"encryptedPayload"`
}
