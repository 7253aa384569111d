package handlers

import (
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/catalog"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/format"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/views"
)

// FormPresenter turns a stored form into its client view with display strings.
type FormPresenter struct {
	catalog *catalog.Catalog
	rules   *swap.Validator
}

// NewFormPresenter validates views against the edit-time rules; recipient requirements only
// surface on the validation endpoint and at submit.
func NewFormPresenter(c *catalog.Catalog) *FormPresenter {
	return &FormPresenter{catalog: c, rules: swap.NewValidator(swap.DefaultRules()...)}
}

func (p *FormPresenter) Present(f swap.Form) views.FormView {
	report := f.Validate(p.rules)
	return p.present(f, report, swap.Submittable(report, f.Dirty))
}

func (p *FormPresenter) PresentWithReport(f swap.Form, report swap.Report, submittable bool) views.FormView {
	return p.present(f, report, submittable)
}

func (p *FormPresenter) present(f swap.Form, report swap.Report, submittable bool) views.FormView {
	v := views.FormView{
		ID:       f.ID.String(),
		Network:  f.Network,
		Token:    f.Selection.Token,
		Currency: f.Selection.Currency,
		Sent: views.AmountView{
			Value:   f.Amounts.Sent.Value,
			Active:  f.Amounts.Sent.Active,
			Enabled: f.FieldEnabled(swap.SentActive),
		},
		Received: views.AmountView{
			Value:   f.Amounts.Received.Value,
			Active:  f.Amounts.Received.Active,
			Enabled: f.FieldEnabled(swap.ReceivedActive),
		},
		Rate: views.RateView{
			State:    f.Rate.State,
			Fetching: f.Rate.Fetching,
		},
		Recipient: views.RecipientView{
			Institution:       f.Recipient.Institution,
			AccountIdentifier: f.Recipient.AccountIdentifier,
			AccountName:       f.Recipient.AccountName,
			Memo:              f.Recipient.Memo,
		},
		Dirty:       f.Dirty,
		Validation:  report,
		Submittable: submittable,
		UpdatedAt:   f.UpdatedAt,
	}

	if rate, ok := f.Rate.Usable(); ok {
		v.Rate.Value = rate.String()
	}
	v.Rate.Summary = format.RateSummary(f.Selection.Token, f.Selection.Currency, f.Rate.Value, f.Rate.Fetching)

	if cur, ok := p.catalog.Currency(f.Selection.Currency); ok {
		if received, ok := f.Amounts.Received.Decimal(); ok && f.Amounts.Received.Present() {
			if s, err := format.Currency(received, cur.Code, cur.Locale); err == nil {
				v.ReceivedFormatted = s
			}
		}
		if name, ok := catalog.InstitutionNameByCode(f.Recipient.Institution, cur.Institutions); ok {
			v.Recipient.InstitutionName = name
		}
	}
	return v
}
