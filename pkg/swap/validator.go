package swap

// FieldResult is the outcome of evaluating every rule of one field.
// Disabled fields are not evaluated and are always valid.
type FieldResult struct {
	Field    string `json:"field"`
	Valid    bool   `json:"valid"`
	Disabled bool   `json:"disabled"`
	Rule     string `json:"rule,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Report collects the results of all fields in rule declaration order.
type Report struct {
	Fields []FieldResult `json:"fields"`
	Valid  bool          `json:"valid"`
}

func (r Report) Field(name string) (FieldResult, bool) {
	for _, f := range r.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldResult{}, false
}

// Errors maps every invalid field to its reason.
func (r Report) Errors() map[string]string {
	out := make(map[string]string)
	for _, f := range r.Fields {
		if !f.Valid {
			out[f.Field] = f.Reason
		}
	}
	return out
}

// Validator evaluates a list of rules. Rules of a field run in declaration order and the
// first failing one is reported. Empty values only go through required rules; whitespace
// is not empty.
type Validator struct {
	rules  []Rule
	fields []string
}

func NewValidator(rules ...Rule) *Validator {
	v := &Validator{rules: rules}
	seen := make(map[string]struct{})
	for _, r := range rules {
		if _, ok := seen[r.Field]; ok {
			continue
		}
		seen[r.Field] = struct{}{}
		v.fields = append(v.fields, r.Field)
	}
	return v
}

// ValidateField evaluates the rules of one field against the snapshot.
func (v *Validator) ValidateField(field string, values Values) FieldResult {
	value := values.Get(field)
	result := FieldResult{Field: field, Valid: true}

	declared, evaluated := 0, 0
	for _, r := range v.rules {
		if r.Field != field {
			continue
		}
		declared++
		if !r.enabled(values.Selection) {
			continue
		}
		evaluated++
		if r.Name != RuleRequired && value == "" {
			continue
		}
		if r.Predicate != nil && !r.Predicate(value) {
			result.Valid = false
			result.Rule = r.Name
			result.Reason = r.Message
			return result
		}
	}
	result.Disabled = declared > 0 && evaluated == 0
	return result
}

// Validate evaluates every field known to the validator.
func (v *Validator) Validate(values Values) Report {
	report := Report{Valid: true, Fields: make([]FieldResult, 0, len(v.fields))}
	for _, field := range v.fields {
		res := v.ValidateField(field, values)
		if !res.Valid {
			report.Valid = false
		}
		report.Fields = append(report.Fields, res)
	}
	return report
}

// Submittable requires at least one touched field and no failing rule.
func Submittable(report Report, dirty bool) bool {
	return dirty && report.Valid
}
