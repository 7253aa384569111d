package services

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWallet = "0x00000000000000000000000000000000000000a1"

// fakeCaller answers balanceOf per token contract with ABI-encoded raw amounts.
type fakeCaller struct {
	raw    map[common.Address]*big.Int
	failOn map[common.Address]bool
	owners []common.Address
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method := parsedERC20BalanceOf.Methods["balanceOf"]
	if !bytes.HasPrefix(msg.Data, method.ID) {
		return nil, errors.New("unexpected call")
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	f.owners = append(f.owners, args[0].(common.Address))
	if f.failOn[*msg.To] {
		return nil, errors.New("execution reverted")
	}
	v, ok := f.raw[*msg.To]
	if !ok {
		v = big.NewInt(0)
	}
	return method.Outputs.Pack(v)
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(`
networks:
  - name: base
    tokens:
      - {symbol: USDC, address: "0x0000000000000000000000000000000000000001", decimals: 6}
      - {symbol: CNGN, address: "0x0000000000000000000000000000000000000002", decimals: 18}
  - name: polygon
    tokens:
      - {symbol: USDC, address: "0x0000000000000000000000000000000000000003", decimals: 6}
currencies:
  - code: NGN
    locale: en-NG
    institutions:
      - {code: GTBINGLA, name: Guaranty Trust Bank, type: bank}
  - code: KES
    locale: en-KE
    institutions:
      - {code: SAFAKEPC, name: M-Pesa, type: mobile_money}
`))
	require.NoError(t, err)
	return c
}

func newBalanceService(t *testing.T, caller ContractCaller) BalanceProvider {
	return NewBalanceService(BalanceServiceConfig{
		Logger:       zap.NewNop(),
		Catalog:      testCatalog(t),
		RPCEndpoints: map[string]string{"base": "http://rpc.local"},
		Dial: func(context.Context, string) (ContractCaller, error) {
			return caller, nil
		},
	})
}

func TestBalanceService_Balances(t *testing.T) {
	// Arrange
	cngn, _ := new(big.Int).SetString("1250000000000000000000", 10)
	caller := &fakeCaller{raw: map[common.Address]*big.Int{
		common.HexToAddress("0x01"): big.NewInt(42_500_000),
		common.HexToAddress("0x02"): cngn,
	}}
	svc := newBalanceService(t, caller)

	// Act
	balances, err := svc.Balances(context.Background(), "base", testWallet)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "42.5", balances["USDC"].String())
	assert.Equal(t, "1250", balances["CNGN"].String())
	for _, owner := range caller.owners {
		assert.Equal(t, common.HexToAddress(testWallet), owner)
	}
}

func TestBalanceService_PartialFailure(t *testing.T) {
	caller := &fakeCaller{
		raw:    map[common.Address]*big.Int{common.HexToAddress("0x01"): big.NewInt(1_000_000)},
		failOn: map[common.Address]bool{common.HexToAddress("0x02"): true},
	}
	svc := newBalanceService(t, caller)

	balances, err := svc.Balances(context.Background(), "base", testWallet)

	require.NoError(t, err)
	assert.Equal(t, "1", balances["USDC"].String())
	_, ok := balances["CNGN"]
	assert.False(t, ok)
}

func TestBalanceService_AllCallsFail(t *testing.T) {
	caller := &fakeCaller{failOn: map[common.Address]bool{
		common.HexToAddress("0x01"): true,
		common.HexToAddress("0x02"): true,
	}}
	svc := newBalanceService(t, caller)

	_, err := svc.Balances(context.Background(), "base", testWallet)

	assert.ErrorIs(t, err, pkg.ErrUpstream)
}

func TestBalanceService_InvalidInput(t *testing.T) {
	svc := newBalanceService(t, &fakeCaller{})

	_, err := svc.Balances(context.Background(), "base", "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidWallet)

	_, err = svc.Balances(context.Background(), "solana", testWallet)
	assert.ErrorIs(t, err, catalog.ErrUnknownNetwork)

	_, err = svc.Balances(context.Background(), "polygon", testWallet)
	assert.ErrorIs(t, err, ErrNoRPCForNetwork)
}
