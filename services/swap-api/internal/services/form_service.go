package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/catalog"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/utils"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SelectionUpdate changes the token and/or currency; nil leaves a side untouched.
type SelectionUpdate struct {
	Token    *string
	Currency *string
}

// FormService drives a form through the user's edits. Every mutation goes through the repository's
// Update so edits to one form are applied one at a time against its latest state.
type FormService interface {
	Create(ctx context.Context, traceID, network string) (swap.Form, error)
	Get(ctx context.Context, id uuid.UUID) (swap.Form, error)
	Delete(ctx context.Context, traceID string, id uuid.UUID) error
	Select(ctx context.Context, traceID string, id uuid.UUID, update SelectionUpdate) (swap.Form, error)
	EditAmount(ctx context.Context, traceID string, id uuid.UUID, field swap.ActiveField, value string) (swap.Form, error)
	RefreshRate(ctx context.Context, traceID string, id uuid.UUID) (swap.Form, error)
	ApplyMax(ctx context.Context, traceID string, id uuid.UUID, wallet string) (swap.Form, bool, error)
	SetRecipient(ctx context.Context, traceID string, id uuid.UUID, recipient swap.Recipient) (swap.Form, error)
	// Validate evaluates the full submission ruleset.
	Validate(ctx context.Context, id uuid.UUID) (swap.Form, swap.Report, bool, error)
}

type FormServiceConfig struct {
	Logger         *zap.Logger
	Repo           repositories.FormRepository
	Catalog        *catalog.Catalog
	Rates          RateService
	Balances       BalanceProvider
	DefaultNetwork string
	Now            func() time.Time
}

type FormServiceImpl struct {
	logger         *zap.Logger
	repo           repositories.FormRepository
	catalog        *catalog.Catalog
	rates          RateService
	balances       BalanceProvider
	defaultNetwork string
	now            func() time.Time
	submitRules    *swap.Validator
}

func NewFormService(cfg FormServiceConfig) FormService {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &FormServiceImpl{
		logger:         cfg.Logger,
		repo:           cfg.Repo,
		catalog:        cfg.Catalog,
		rates:          cfg.Rates,
		balances:       cfg.Balances,
		defaultNetwork: cfg.DefaultNetwork,
		now:            now,
		submitRules:    swap.NewValidator(swap.SubmissionRules()...),
	}
}

func (s *FormServiceImpl) Create(ctx context.Context, traceID, network string) (swap.Form, error) {
	network = strings.TrimSpace(network)
	if utils.IsEmpty(network) {
		network = s.defaultNetwork
	}
	n, ok := s.catalog.Network(network)
	if !ok {
		return swap.Form{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "unsupported network", catalog.ErrUnknownNetwork)
	}

	token := pkg.DefaultToken
	if _, ok := s.catalog.Token(n.Name, token); !ok && len(n.Tokens) > 0 {
		token = n.Tokens[0].Symbol
	}
	form := swap.NewForm(uuid.New(), n.Name, token, s.now())
	if err := s.repo.Create(ctx, form); err != nil {
		return swap.Form{}, pkg.NewAppError(pkg.ErrServerCode, "failed to create form", err)
	}
	s.logger.Info("form created",
		zap.String(pkg.TraceId, traceID), zap.String(pkg.FormId, form.ID.String()), zap.String(pkg.Network, n.Name))
	return form, nil
}

func (s *FormServiceImpl) Get(ctx context.Context, id uuid.UUID) (swap.Form, error) {
	form, err := s.repo.FindByID(ctx, id)
	return form, mapRepoError(err)
}

func (s *FormServiceImpl) Delete(ctx context.Context, traceID string, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("form discarded", zap.String(pkg.TraceId, traceID), zap.String(pkg.FormId, id.String()))
	return nil
}

// Select changes the asset selection. It does not recompute: the rate of the previous pair is dropped
// and the amounts stay as entered until the next edit or rate observation.
func (s *FormServiceImpl) Select(ctx context.Context, traceID string, id uuid.UUID, update SelectionUpdate) (swap.Form, error) {
	form, err := s.update(ctx, id, func(f *swap.Form) error {
		before := f.Selection
		if update.Token != nil {
			token := strings.TrimSpace(*update.Token)
			if !utils.IsEmpty(token) {
				t, ok := s.catalog.Token(f.Network, token)
				if !ok {
					return pkg.NewAppError(pkg.ErrInvalidInputCode, "token is not supported on "+f.Network, nil)
				}
				token = t.Symbol
			}
			f.SelectToken(token)
		}
		if update.Currency != nil {
			currency := strings.TrimSpace(*update.Currency)
			if !utils.IsEmpty(currency) {
				c, ok := s.catalog.Currency(currency)
				if !ok {
					return pkg.NewAppError(pkg.ErrInvalidInputCode, "currency is not supported", nil)
				}
				currency = c.Code
			}
			f.SelectCurrency(currency)
		}
		if f.Selection != before {
			f.Rate = swap.UnknownRate()
		}
		f.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return swap.Form{}, err
	}
	s.logger.Debug("selection changed", zap.String(pkg.TraceId, traceID), zap.String(pkg.FormId, id.String()),
		zap.String(pkg.Token, form.Selection.Token), zap.String(pkg.Currency, form.Selection.Currency))
	return form, nil
}

func (s *FormServiceImpl) EditAmount(ctx context.Context, traceID string, id uuid.UUID, field swap.ActiveField, value string) (swap.Form, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return swap.Form{}, err
	}
	if !current.FieldEnabled(field) {
		return swap.Form{}, pkg.NewAppError(pkg.ErrFieldDisabledCode, field.String()+" is disabled", swap.ErrFieldDisabled)
	}
	rate := s.observe(ctx, current.Selection, quoteAmount(current, field, value))

	var changed bool
	form, err := s.update(ctx, id, func(f *swap.Form) error {
		derived := derivedValue(f, field)
		f.Rate = rate
		if err := f.EditAmount(field, value); err != nil {
			return err
		}
		changed = derived != derivedValue(f, field)
		f.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return swap.Form{}, err
	}
	if changed {
		observability.Recomputes.WithLabelValues(otherField(field).String()).Inc()
	}
	s.logger.Debug("amount edited", zap.String(pkg.TraceId, traceID), zap.String(pkg.FormId, id.String()),
		zap.String(pkg.Field, field.String()), zap.String("rate_state", form.Rate.State.String()))
	return form, nil
}

// RefreshRate observes the rate again and recomputes the derived amount with it.
func (s *FormServiceImpl) RefreshRate(ctx context.Context, traceID string, id uuid.UUID) (swap.Form, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return swap.Form{}, err
	}
	active := current.Amounts.Active()
	rate := s.observe(ctx, current.Selection, quoteAmount(current, active, ""))

	var changed bool
	form, err := s.update(ctx, id, func(f *swap.Form) error {
		if f.Selection != current.Selection {
			// selection moved while the rate was fetched; the rate belongs to the old pair
			return nil
		}
		changed = f.ObserveRate(rate)
		f.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return swap.Form{}, err
	}
	if changed {
		observability.Recomputes.WithLabelValues(otherField(form.Amounts.Active()).String()).Inc()
	}
	s.logger.Debug("rate observed", zap.String(pkg.TraceId, traceID), zap.String(pkg.FormId, id.String()),
		zap.String("rate_state", form.Rate.State.String()), zap.Bool("recomputed", changed))
	return form, nil
}

// ApplyMax fills sent with the wallet's balance of the selected token. The boolean reports whether
// the wallet held the token; without a balance the form is returned unchanged.
func (s *FormServiceImpl) ApplyMax(ctx context.Context, traceID string, id uuid.UUID, wallet string) (swap.Form, bool, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return swap.Form{}, false, err
	}
	if !current.FieldEnabled(swap.SentActive) {
		return swap.Form{}, false, pkg.NewAppError(pkg.ErrFieldDisabledCode, "sent is disabled", swap.ErrFieldDisabled)
	}
	balances, err := s.balances.Balances(ctx, current.Network, wallet)
	if err != nil {
		return swap.Form{}, false, mapBalanceError(err)
	}
	balance, ok := swap.ResolveMax(current.Selection, balances)
	if !ok {
		s.logger.Info("no balance for selected token", zap.String(pkg.TraceId, traceID),
			zap.String(pkg.FormId, id.String()), zap.String(pkg.Token, current.Selection.Token))
		return current, false, nil
	}
	rate := s.observe(ctx, current.Selection, balance)

	var applied bool
	form, err := s.update(ctx, id, func(f *swap.Form) error {
		if f.Selection == current.Selection {
			f.Rate = rate
		}
		applied = f.ApplyMax(balances)
		f.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return swap.Form{}, false, err
	}
	s.logger.Info("max applied", zap.String(pkg.TraceId, traceID), zap.String(pkg.FormId, id.String()),
		zap.String(pkg.Token, form.Selection.Token), zap.String("amount", form.Amounts.Sent.Value))
	return form, applied, nil
}

func (s *FormServiceImpl) SetRecipient(ctx context.Context, traceID string, id uuid.UUID, recipient swap.Recipient) (swap.Form, error) {
	recipient.Institution = strings.TrimSpace(recipient.Institution)
	recipient.AccountIdentifier = strings.TrimSpace(recipient.AccountIdentifier)
	recipient.AccountName = strings.TrimSpace(recipient.AccountName)

	form, err := s.update(ctx, id, func(f *swap.Form) error {
		if !utils.IsEmpty(recipient.Institution) && f.Selection.Currency != "" {
			if _, ok := catalog.InstitutionNameByCode(recipient.Institution, s.catalog.Institutions(f.Selection.Currency)); !ok {
				return pkg.NewAppError(pkg.ErrInvalidInputCode, "institution is not supported for "+f.Selection.Currency, nil)
			}
		}
		f.SetRecipient(recipient)
		f.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return swap.Form{}, err
	}
	s.logger.Debug("recipient set", zap.String(pkg.TraceId, traceID), zap.String(pkg.FormId, id.String()))
	return form, nil
}

func (s *FormServiceImpl) Validate(ctx context.Context, id uuid.UUID) (swap.Form, swap.Report, bool, error) {
	form, err := s.Get(ctx, id)
	if err != nil {
		return swap.Form{}, swap.Report{}, false, err
	}
	report := form.Validate(s.submitRules)
	RecordValidationFailures(report)
	return form, report, swap.Submittable(report, form.Dirty), nil
}

func (s *FormServiceImpl) observe(ctx context.Context, selection swap.Selection, amount decimal.Decimal) swap.Rate {
	if !selection.Complete() {
		return swap.UnknownRate()
	}
	return s.rates.Observe(ctx, selection.Token, selection.Currency, amount)
}

func (s *FormServiceImpl) update(ctx context.Context, id uuid.UUID, fn func(*swap.Form) error) (swap.Form, error) {
	form, err := s.repo.Update(ctx, id, fn)
	return form, mapRepoError(err)
}

// RecordValidationFailures counts every failing rule of a report.
func RecordValidationFailures(report swap.Report) {
	for _, f := range report.Fields {
		if !f.Valid {
			observability.ValidationFailures.WithLabelValues(f.Field, f.Rule).Inc()
		}
	}
}

// quoteAmount is the source amount the rate is quoted for. Quotes depend on size, so the sent
// amount is used when known; when received is being edited the previous sent value stands in.
func quoteAmount(f swap.Form, field swap.ActiveField, value string) decimal.Decimal {
	entry := f.Amounts.Sent.Value
	if field == swap.SentActive && !utils.IsEmpty(value) {
		entry = value
	}
	d, err := decimal.NewFromString(strings.TrimSpace(entry))
	if err != nil || !d.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return d
}

func derivedValue(f *swap.Form, edited swap.ActiveField) string {
	if edited == swap.ReceivedActive {
		return f.Amounts.Sent.Value
	}
	return f.Amounts.Received.Value
}

func otherField(field swap.ActiveField) swap.ActiveField {
	if field == swap.ReceivedActive {
		return swap.SentActive
	}
	return swap.ReceivedActive
}

func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrFormNotFound):
		return pkg.NewAppError(pkg.ErrRecordNotFoundCode, "form not found", err)
	case errors.Is(err, swap.ErrFieldDisabled):
		return pkg.NewAppError(pkg.ErrFieldDisabledCode, "field is disabled", err)
	}
	var appErr pkg.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return pkg.NewAppError(pkg.ErrServerCode, "form store unavailable", err)
}

func mapBalanceError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidWallet):
		return pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid wallet address", err)
	case errors.Is(err, catalog.ErrUnknownNetwork), errors.Is(err, ErrNoRPCForNetwork):
		return pkg.NewAppError(pkg.ErrInvalidInputCode, "balances are not available on this network", err)
	default:
		return pkg.NewAppError(pkg.ErrUpstreamCode, "failed to read wallet balances", err)
	}
}
