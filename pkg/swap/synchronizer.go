package swap

// Synchronizer keeps the sent and received amounts consistent under a shared rate.
// Exactly one of the two fields is active; Recompute only ever writes the other one.
type Synchronizer struct {
	Sent     AmountField `json:"sent"`
	Received AmountField `json:"received"`
}

// NewSynchronizer starts with sent as the active field.
func NewSynchronizer() Synchronizer {
	return Synchronizer{Sent: AmountField{Active: true}}
}

func (s *Synchronizer) Active() ActiveField {
	if s.Received.Active {
		return ReceivedActive
	}
	return SentActive
}

// SetActive records which field is authoritative for the next recompute.
func (s *Synchronizer) SetActive(field ActiveField) {
	s.Sent.Active = field == SentActive
	s.Received.Active = field == ReceivedActive
}

// Edit applies a user keystroke: the edited field becomes active and takes the entry verbatim.
func (s *Synchronizer) Edit(field ActiveField, value string) {
	s.SetActive(field)
	if field == ReceivedActive {
		s.Received.Value = value
		return
	}
	s.Sent.Value = value
}

// Recompute derives the non-active field from the active one and reports whether anything changed.
func (s *Synchronizer) Recompute(rate Rate) bool {
	sent, received := Recompute(rate, s.Sent, s.Received)
	changed := sent != s.Sent || received != s.Received
	s.Sent, s.Received = sent, received
	return changed
}

// Recompute is the pure form of the synchronizer step. It is a no-op when the rate is not usable,
// when neither amount holds an entry, or when the active entry is not a number.
// Received active: sent = round(received / rate, 2). Otherwise: received = round(rate * sent, 2).
func Recompute(rate Rate, sent, received AmountField) (AmountField, AmountField) {
	value, ok := rate.Usable()
	if !ok || (!sent.Present() && !received.Present()) {
		return sent, received
	}

	if received.Active {
		amount, ok := received.Decimal()
		if !ok {
			return sent, received
		}
		sent.Value = amount.Div(value).Round(AmountScale).String()
		return sent, received
	}

	amount, ok := sent.Decimal()
	if !ok {
		return sent, received
	}
	received.Value = value.Mul(amount).Round(AmountScale).String()
	return sent, received
}
