package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/catalog"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const erc20BalanceABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

var (
	ErrInvalidWallet     = errors.New("invalid wallet address")
	ErrNoRPCForNetwork   = errors.New("no RPC endpoint configured for network")
	balanceCallTimeout   = 5 * time.Second
	parsedERC20BalanceOf = mustParseABI(erc20BalanceABI)
)

// ContractCaller is the read-only slice of an Ethereum client the balance lookup needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dialer opens a ContractCaller for an RPC endpoint.
type Dialer func(ctx context.Context, rpcURL string) (ContractCaller, error)

// BalanceProvider reads the wallet balances of every catalog token on a network.
type BalanceProvider interface {
	Balances(ctx context.Context, network, wallet string) (swap.BalanceMap, error)
}

type BalanceServiceConfig struct {
	Logger       *zap.Logger
	Catalog      *catalog.Catalog
	RPCEndpoints map[string]string
	Dial         Dialer
}

type BalanceServiceImpl struct {
	logger    *zap.Logger
	catalog   *catalog.Catalog
	endpoints map[string]string
	dial      Dialer

	mu      sync.Mutex
	callers map[string]ContractCaller
}

func NewBalanceService(cfg BalanceServiceConfig) BalanceProvider {
	dial := cfg.Dial
	if dial == nil {
		dial = DialEthereum
	}
	return &BalanceServiceImpl{
		logger:    cfg.Logger,
		catalog:   cfg.Catalog,
		endpoints: cfg.RPCEndpoints,
		dial:      dial,
		callers:   make(map[string]ContractCaller),
	}
}

// DialEthereum connects to a JSON-RPC endpoint with go-ethereum's ethclient.
func DialEthereum(ctx context.Context, rpcURL string) (ContractCaller, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Balances returns the human-unit balance per token symbol. Tokens whose call fails are left out;
// the lookup only fails when no token could be read.
func (b *BalanceServiceImpl) Balances(ctx context.Context, network, wallet string) (swap.BalanceMap, error) {
	if !common.IsHexAddress(wallet) {
		return nil, ErrInvalidWallet
	}
	tokens, err := b.catalog.Tokens(network)
	if err != nil {
		return nil, err
	}
	caller, err := b.caller(ctx, network)
	if err != nil {
		observability.BalanceLookups.WithLabelValues(network, "failure").Inc()
		return nil, err
	}

	owner := common.HexToAddress(wallet)
	balances := make(swap.BalanceMap, len(tokens))
	var lastErr error
	for _, token := range tokens {
		raw, err := balanceOf(ctx, caller, common.HexToAddress(token.Address), owner)
		if err != nil {
			lastErr = err
			b.logger.Warn("balanceOf failed",
				zap.String(pkg.Network, network), zap.String(pkg.Token, token.Symbol), zap.Error(err))
			continue
		}
		balances[token.Symbol] = decimal.NewFromBigInt(raw, -token.Decimals)
	}
	if len(balances) == 0 && lastErr != nil {
		observability.BalanceLookups.WithLabelValues(network, "failure").Inc()
		return nil, fmt.Errorf("%w: %w", pkg.ErrUpstream, lastErr)
	}
	observability.BalanceLookups.WithLabelValues(network, "success").Inc()
	return balances, nil
}

func (b *BalanceServiceImpl) caller(ctx context.Context, network string) (ContractCaller, error) {
	network = strings.ToLower(network)
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.callers[network]; ok {
		return c, nil
	}
	endpoint, ok := b.endpoints[network]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRPCForNetwork, network)
	}
	c, err := b.dial(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", pkg.ErrUpstream, network, err)
	}
	b.callers[network] = c
	return c, nil
}

func balanceOf(ctx context.Context, caller ContractCaller, tokenAddr, owner common.Address) (*big.Int, error) {
	data, err := parsedERC20BalanceOf.Pack("balanceOf", owner)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, balanceCallTimeout)
	defer cancel()

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &tokenAddr, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := parsedERC20BalanceOf.Unpack("balanceOf", out)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("empty balanceOf result")
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result %T", values[0])
	}
	return v, nil
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
