package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFormService(t *testing.T, rates RateService, balances BalanceProvider) (FormService, repositories.FormRepository) {
	t.Helper()
	repo := repositories.NewFormRepositoryMemory(time.Hour)
	clk := newClock()
	return NewFormService(FormServiceConfig{
		Logger:         zap.NewNop(),
		Repo:           repo,
		Catalog:        testCatalog(t),
		Rates:          rates,
		Balances:       balances,
		DefaultNetwork: "base",
		Now:            clk.Now,
	}), repo
}

func ptr(s string) *string { return &s }

func assertAppError(t *testing.T, err error, code pkg.ErrorCode) {
	t.Helper()
	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code.Code, appErr.Code.Code)
}

func createWithPair(t *testing.T, svc FormService) swap.Form {
	t.Helper()
	ctx := context.Background()
	form, err := svc.Create(ctx, "trace", "")
	require.NoError(t, err)
	form, err = svc.Select(ctx, "trace", form.ID, SelectionUpdate{Currency: ptr("ngn")})
	require.NoError(t, err)
	return form
}

func TestFormService_Create(t *testing.T) {
	svc, _ := newFormService(t, stubRates{}, stubBalances{})

	form, err := svc.Create(context.Background(), "trace", "")

	require.NoError(t, err)
	assert.Equal(t, "base", form.Network)
	assert.Equal(t, "USDC", form.Selection.Token)
	assert.Empty(t, form.Selection.Currency)
	assert.False(t, form.Dirty)

	_, err = svc.Create(context.Background(), "trace", "solana")
	assertAppError(t, err, pkg.ErrInvalidInputCode)
}

func TestFormService_SelectNormalizesAndDropsRate(t *testing.T) {
	svc, repo := newFormService(t, stubRates{rate: swap.UsableRate(decimal.NewFromInt(1500))}, stubBalances{})
	form := createWithPair(t, svc)
	_, err := svc.EditAmount(context.Background(), "trace", form.ID, swap.SentActive, "10")
	require.NoError(t, err)

	updated, err := svc.Select(context.Background(), "trace", form.ID, SelectionUpdate{Currency: ptr("kes")})

	require.NoError(t, err)
	assert.Equal(t, "KES", updated.Selection.Currency)
	assert.Equal(t, swap.RateUnknown, updated.Rate.State)
	assert.Equal(t, "15000", updated.Amounts.Received.Value)

	stored, err := repo.FindByID(context.Background(), form.ID)
	require.NoError(t, err)
	assert.Equal(t, "KES", stored.Selection.Currency)
}

func TestFormService_SelectUnsupported(t *testing.T) {
	svc, _ := newFormService(t, stubRates{}, stubBalances{})
	form, err := svc.Create(context.Background(), "trace", "")
	require.NoError(t, err)

	_, err = svc.Select(context.Background(), "trace", form.ID, SelectionUpdate{Token: ptr("DOGE")})
	assertAppError(t, err, pkg.ErrInvalidInputCode)

	_, err = svc.Select(context.Background(), "trace", form.ID, SelectionUpdate{Currency: ptr("EUR")})
	assertAppError(t, err, pkg.ErrInvalidInputCode)
}

func TestFormService_EditAmountRecomputes(t *testing.T) {
	// Arrange
	svc, _ := newFormService(t, stubRates{rate: swap.UsableRate(decimal.RequireFromString("1500.5"))}, stubBalances{})
	form := createWithPair(t, svc)

	// Act
	sent, err := svc.EditAmount(context.Background(), "trace", form.ID, swap.SentActive, "10")
	require.NoError(t, err)
	received, err := svc.EditAmount(context.Background(), "trace", form.ID, swap.ReceivedActive, "3001")
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "15005", sent.Amounts.Received.Value)
	assert.Equal(t, "2", received.Amounts.Sent.Value)
	assert.Equal(t, swap.ReceivedActive, received.Amounts.Active())
	assert.True(t, received.Dirty)
}

func TestFormService_EditAmountPendingRateKeepsInput(t *testing.T) {
	svc, _ := newFormService(t, stubRates{rate: swap.PendingRate()}, stubBalances{})
	form := createWithPair(t, svc)

	updated, err := svc.EditAmount(context.Background(), "trace", form.ID, swap.SentActive, "10")

	require.NoError(t, err)
	assert.Equal(t, "10", updated.Amounts.Sent.Value)
	assert.Empty(t, updated.Amounts.Received.Value)
	assert.Equal(t, swap.RatePending, updated.Rate.State)
}

func TestFormService_EditDisabledField(t *testing.T) {
	svc, _ := newFormService(t, stubRates{}, stubBalances{})
	form, err := svc.Create(context.Background(), "trace", "")
	require.NoError(t, err)

	_, err = svc.EditAmount(context.Background(), "trace", form.ID, swap.ReceivedActive, "10")

	assertAppError(t, err, pkg.ErrFieldDisabledCode)
	assert.ErrorIs(t, err, swap.ErrFieldDisabled)
}

func TestFormService_UnknownForm(t *testing.T) {
	svc, _ := newFormService(t, stubRates{}, stubBalances{})

	_, err := svc.EditAmount(context.Background(), "trace", uuid.New(), swap.SentActive, "10")
	assertAppError(t, err, pkg.ErrRecordNotFoundCode)

	err = svc.Delete(context.Background(), "trace", uuid.New())
	assertAppError(t, err, pkg.ErrRecordNotFoundCode)
}

func TestFormService_RefreshRate(t *testing.T) {
	rates := &switchableRates{rate: swap.PendingRate()}
	svc, _ := newFormService(t, rates, stubBalances{})
	form := createWithPair(t, svc)
	_, err := svc.EditAmount(context.Background(), "trace", form.ID, swap.SentActive, "4")
	require.NoError(t, err)

	rates.rate = swap.UsableRate(decimal.NewFromInt(1500))
	updated, err := svc.RefreshRate(context.Background(), "trace", form.ID)

	require.NoError(t, err)
	assert.Equal(t, "6000", updated.Amounts.Received.Value)
	assert.Equal(t, "4", updated.Amounts.Sent.Value)
}

func TestFormService_ApplyMax(t *testing.T) {
	balances := stubBalances{balances: swap.BalanceMap{"USDC": decimal.RequireFromString("42.5")}}
	svc, _ := newFormService(t, stubRates{rate: swap.UsableRate(decimal.NewFromInt(1500))}, balances)
	form := createWithPair(t, svc)
	_, err := svc.EditAmount(context.Background(), "trace", form.ID, swap.ReceivedActive, "100")
	require.NoError(t, err)

	updated, applied, err := svc.ApplyMax(context.Background(), "trace", form.ID, testWallet)

	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "42.5", updated.Amounts.Sent.Value)
	assert.Equal(t, swap.SentActive, updated.Amounts.Active())
	assert.Equal(t, "63750", updated.Amounts.Received.Value)
}

func TestFormService_ApplyMaxWithoutBalance(t *testing.T) {
	balances := stubBalances{balances: swap.BalanceMap{"CNGN": decimal.NewFromInt(7)}}
	svc, _ := newFormService(t, stubRates{}, balances)
	form := createWithPair(t, svc)

	updated, applied, err := svc.ApplyMax(context.Background(), "trace", form.ID, testWallet)

	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, updated.Amounts.Sent.Value)
}

func TestFormService_ApplyMaxBalanceErrors(t *testing.T) {
	cases := map[error]pkg.ErrorCode{
		ErrInvalidWallet:          pkg.ErrInvalidInputCode,
		ErrNoRPCForNetwork:        pkg.ErrInvalidInputCode,
		errors.New("rpc timeout"): pkg.ErrUpstreamCode,
	}
	for cause, code := range cases {
		svc, _ := newFormService(t, stubRates{}, stubBalances{err: cause})
		form := createWithPair(t, svc)

		_, _, err := svc.ApplyMax(context.Background(), "trace", form.ID, testWallet)

		assertAppError(t, err, code)
	}
}

func TestFormService_RecipientAndValidate(t *testing.T) {
	svc, _ := newFormService(t, stubRates{rate: swap.UsableRate(decimal.NewFromInt(1500))}, stubBalances{})
	form := createWithPair(t, svc)
	_, err := svc.EditAmount(context.Background(), "trace", form.ID, swap.SentActive, "100")
	require.NoError(t, err)

	_, report, submittable, err := svc.Validate(context.Background(), form.ID)
	require.NoError(t, err)
	assert.False(t, submittable)
	assert.Contains(t, report.Errors(), swap.FieldInstitution)

	_, err = svc.SetRecipient(context.Background(), "trace", form.ID, swap.Recipient{Institution: "SAFAKEPC"})
	assertAppError(t, err, pkg.ErrInvalidInputCode)

	_, err = svc.SetRecipient(context.Background(), "trace", form.ID, swap.Recipient{
		Institution: "GTBINGLA", AccountIdentifier: " 0123456789 ", Memo: "rent",
	})
	require.NoError(t, err)

	stored, report, submittable, err := svc.Validate(context.Background(), form.ID)
	require.NoError(t, err)
	assert.True(t, submittable)
	assert.True(t, report.Valid)
	assert.Equal(t, "0123456789", stored.Recipient.AccountIdentifier)
}

type switchableRates struct {
	rate swap.Rate
}

func (s *switchableRates) Observe(context.Context, string, string, decimal.Decimal) swap.Rate {
	return s.rate
}
