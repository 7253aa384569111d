package swap

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Field names used by rules, results and the HTTP API.
const (
	FieldSent              = "sent"
	FieldReceived          = "received"
	FieldMemo              = "memo"
	FieldInstitution       = "institution"
	FieldAccountIdentifier = "accountIdentifier"
)

// Rule names.
const (
	RuleRequired  = "required"
	RuleMin       = "min"
	RuleMax       = "max"
	RulePattern   = "pattern"
	RuleMaxLength = "maxLength"
	RuleDerived   = "derived"
)

const (
	MaxAmountDecimals = 4
	MaxMemoLength     = 25
)

var (
	MinSendAmount = decimal.RequireFromString("0.5")
	MaxSendAmount = decimal.RequireFromString("10000")

	amountPattern = regexp.MustCompile(fmt.Sprintf(`^\d+(\.\d{1,%d})?$`, MaxAmountDecimals))
	validate      = validator.New()
)

// Predicate reports whether a field value satisfies a rule.
type Predicate func(value string) bool

// Condition decides whether a rule applies for the current asset selection.
type Condition func(selection Selection) bool

// Rule is one declarative constraint on a field. A nil Enabled means always enabled.
type Rule struct {
	Field     string
	Name      string
	Message   string
	Predicate Predicate
	Enabled   Condition
}

func (r Rule) enabled(selection Selection) bool {
	return r.Enabled == nil || r.Enabled(selection)
}

// Values is the snapshot of field values the rules are evaluated against.
type Values struct {
	Sent              string
	Received          string
	Memo              string
	Institution       string
	AccountIdentifier string
	Selection         Selection
}

// Get returns the value of a named field; unknown fields read as empty.
func (v Values) Get(field string) string {
	switch field {
	case FieldSent:
		return v.Sent
	case FieldReceived:
		return v.Received
	case FieldMemo:
		return v.Memo
	case FieldInstitution:
		return v.Institution
	case FieldAccountIdentifier:
		return v.AccountIdentifier
	default:
		return ""
	}
}

func tokenSelected(s Selection) bool  { return s.HasToken() }
func assetsSelected(s Selection) bool { return s.Complete() }

func required(value string) bool {
	return strings.TrimSpace(value) != ""
}

func atLeast(bound decimal.Decimal) Predicate {
	return func(value string) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return true
		}
		return d.GreaterThanOrEqual(bound)
	}
}

func atMost(bound decimal.Decimal) Predicate {
	return func(value string) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return true
		}
		return d.LessThanOrEqual(bound)
	}
}

func matches(pattern *regexp.Regexp) Predicate {
	return func(value string) bool {
		return pattern.MatchString(strings.TrimSpace(value))
	}
}

func maxLength(n int) Predicate {
	tag := fmt.Sprintf("max=%d", n)
	return func(value string) bool {
		return validate.Var(value, tag) == nil
	}
}

// AmountRules constrains the amount fields. Sent is only evaluated once a token is selected;
// received carries no bound of its own and is only enabled once token and currency are selected.
func AmountRules() []Rule {
	return []Rule{
		{Field: FieldSent, Name: RuleRequired, Message: "Amount is required", Predicate: required, Enabled: tokenSelected},
		{Field: FieldSent, Name: RuleMin, Message: "Min. amount is 0.5", Predicate: atLeast(MinSendAmount), Enabled: tokenSelected},
		{Field: FieldSent, Name: RuleMax, Message: "Max. amount is 10,000", Predicate: atMost(MaxSendAmount), Enabled: tokenSelected},
		{Field: FieldSent, Name: RulePattern, Message: "Max. of 4 decimal places + no leading dot", Predicate: matches(amountPattern), Enabled: tokenSelected},
		{Field: FieldReceived, Name: RuleDerived, Predicate: func(string) bool { return true }, Enabled: assetsSelected},
	}
}

func MemoRules() []Rule {
	return []Rule{
		{Field: FieldMemo, Name: RuleMaxLength, Message: fmt.Sprintf("Max. of %d characters", MaxMemoLength), Predicate: maxLength(MaxMemoLength)},
	}
}

// RecipientRules are enforced when a form is submitted.
func RecipientRules() []Rule {
	return []Rule{
		{Field: FieldInstitution, Name: RuleRequired, Message: "Institution is required", Predicate: required},
		{Field: FieldAccountIdentifier, Name: RuleRequired, Message: "Account number is required", Predicate: required},
	}
}

// DefaultRules is the ruleset consulted while the user edits the form.
func DefaultRules() []Rule {
	return append(AmountRules(), MemoRules()...)
}

// SubmissionRules adds the recipient details to DefaultRules.
func SubmissionRules() []Rule {
	return append(DefaultRules(), RecipientRules()...)
}
