package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/models"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/utils"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/observability"
	"go.uber.org/zap"
)

// Submission is the outcome of a successful submit: the plaintext record, its ciphertext and the
// form after it was reset for the next conversion.
type Submission struct {
	FormID           uuid.UUID
	Payload          models.SubmissionPayload
	EncryptedPayload string
	Form             swap.Form
}

type SubmissionService interface {
	// Submit validates the form, encrypts its payload and resets the form. publicKey may be empty,
	// in which case the aggregator's key is fetched.
	Submit(ctx context.Context, traceID string, id uuid.UUID, publicKey string) (Submission, error)
	// Encrypt encrypts an arbitrary JSON value with the given key.
	Encrypt(ctx context.Context, traceID string, payload any, publicKey string) (string, error)
	// History lists the audited submit attempts of a form, newest first.
	History(ctx context.Context, id uuid.UUID, limit int) ([]models.SubmissionRecord, error)
}

type SubmissionServiceConfig struct {
	Logger     *zap.Logger
	Repo       repositories.FormRepository
	Aggregator AggregatorClient
	// Audit records every attempt; nil keeps the trail in memory.
	Audit repositories.SubmissionRepository
	Now   func() time.Time
}

type SubmissionServiceImpl struct {
	logger      *zap.Logger
	repo        repositories.FormRepository
	aggregator  AggregatorClient
	audit       repositories.SubmissionRepository
	now         func() time.Time
	submitRules *swap.Validator
}

func NewSubmissionService(cfg SubmissionServiceConfig) SubmissionService {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	audit := cfg.Audit
	if audit == nil {
		audit = repositories.NewSubmissionRepositoryMemory()
	}
	return &SubmissionServiceImpl{
		logger:      cfg.Logger,
		repo:        cfg.Repo,
		aggregator:  cfg.Aggregator,
		audit:       audit,
		now:         now,
		submitRules: swap.NewValidator(swap.SubmissionRules()...),
	}
}

func (s *SubmissionServiceImpl) Submit(ctx context.Context, traceID string, id uuid.UUID, publicKey string) (Submission, error) {
	form, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Submission{}, mapRepoError(err)
	}

	report := form.Validate(s.submitRules)
	if !swap.Submittable(report, form.Dirty) {
		RecordValidationFailures(report)
		reason := rejection(report, form.Dirty)
		s.record(ctx, form, traceID, pkg.SubmissionStatusRejected, reason)
		return Submission{}, pkg.NewAppError(pkg.ErrValidationCode, pkg.ErrValidationCode.Message, reason)
	}

	payload := models.NewSubmissionPayload(form)
	if utils.IsEmpty(strings.TrimSpace(publicKey)) {
		publicKey, err = s.aggregator.FetchPublicKey(ctx)
		if err != nil {
			s.record(ctx, form, traceID, pkg.SubmissionStatusFailed, err)
			return Submission{}, pkg.NewAppError(pkg.ErrUpstreamCode, "failed to fetch aggregator public key", err)
		}
	}

	encrypted, err := s.Encrypt(ctx, traceID, payload, publicKey)
	if err != nil {
		s.record(ctx, form, traceID, pkg.SubmissionStatusFailed, err)
		return Submission{}, err
	}

	// Only a form nobody touched since validation is reset; a concurrent edit keeps its input.
	reset, err := s.repo.Update(ctx, id, func(f *swap.Form) error {
		if !f.UpdatedAt.Equal(form.UpdatedAt) || f.Amounts != form.Amounts || f.Recipient != form.Recipient {
			return errFormChanged
		}
		f.Reset(s.now())
		return nil
	})
	if err != nil {
		if errors.Is(err, errFormChanged) {
			s.record(ctx, form, traceID, pkg.SubmissionStatusRejected, err)
			return Submission{}, pkg.NewAppError(pkg.ErrValidationCode, "form changed during submission, submit again", err)
		}
		s.record(ctx, form, traceID, pkg.SubmissionStatusFailed, err)
		return Submission{}, mapRepoError(err)
	}

	s.record(ctx, form, traceID, pkg.SubmissionStatusEncrypted, nil)
	s.logger.Info("form submitted", zap.String(pkg.TraceId, traceID), zap.String(pkg.FormId, id.String()),
		zap.String(pkg.Token, payload.Token), zap.String(pkg.Currency, payload.Currency))
	return Submission{FormID: id, Payload: payload, EncryptedPayload: encrypted, Form: reset}, nil
}

func (s *SubmissionServiceImpl) Encrypt(_ context.Context, traceID string, payload any, publicKey string) (string, error) {
	encrypted, err := utils.PublicKeyEncrypt(payload, publicKey)
	if err != nil {
		if errors.Is(err, pkg.ErrEncryptionFailure) {
			observability.EncryptionFailures.Inc()
		}
		s.logger.Warn("payload encryption failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
		return "", err
	}
	return encrypted, nil
}

func (s *SubmissionServiceImpl) History(ctx context.Context, id uuid.UUID, limit int) ([]models.SubmissionRecord, error) {
	records, err := s.audit.ListByForm(ctx, id, limit)
	if err != nil {
		return nil, pkg.NewAppError(pkg.ErrServerCode, "submission history unavailable", err)
	}
	return records, nil
}

// record counts and audits an attempt. An unavailable audit store never fails the submit.
func (s *SubmissionServiceImpl) record(ctx context.Context, form swap.Form, traceID string, status pkg.SubmissionStatus, cause error) {
	observability.Submissions.WithLabelValues(string(status)).Inc()
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	rec := models.NewSubmissionRecord(form, traceID, status, reason, s.now())
	if err := s.audit.Record(ctx, rec); err != nil {
		s.logger.Warn("failed to audit submission", zap.String(pkg.TraceId, traceID),
			zap.String(pkg.FormId, form.ID.String()), zap.String("status", string(status)), zap.Error(err))
	}
}

var errFormChanged = errors.New("form changed")

// rejection lists the failing fields in a stable order.
func rejection(report swap.Report, dirty bool) error {
	if !dirty {
		return errors.New("form has not been edited")
	}
	reasons := report.Errors()
	fields := make([]string, 0, len(reasons))
	for field := range reasons {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, reasons[field]))
	}
	return errors.New(strings.Join(parts, "; "))
}
