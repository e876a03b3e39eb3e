package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/aframp/aframp_backend/internal/stellar"
)

type inMemoryGateway struct {
	mu          sync.RWMutex
	accounts    map[string]Account
	submitted   []string
	healthy     bool
	calls       map[string]int
	submitErr   error
	assetCode   string
	assetIssuer string
}

// NewInMemory creates a concurrency-safe gateway double for tests and for
// running the API with SKIP_EXTERNALS (see cmd/api). It validates ids exactly
// like Client.
func NewInMemory() Gateway {
	return &inMemoryGateway{
		accounts:  make(map[string]Account),
		healthy:   true,
		calls:     make(map[string]int),
		assetCode: DefaultCustomAssetCode,
	}
}

// SetCustomAsset changes the asset GetCustomAssetBalance looks up.
func SetCustomAsset(g Gateway, code, issuer string) {
	if mem, ok := g.(*inMemoryGateway); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.assetCode = code
		mem.assetIssuer = issuer
	}
}

func (g *inMemoryGateway) record(op string) {
	g.mu.Lock()
	g.calls[op]++
	g.mu.Unlock()
}

func (g *inMemoryGateway) GetAccount(_ context.Context, accountID string) (Account, error) {
	const op = "get account"
	if err := stellar.ValidateAccountID(op, accountID); err != nil {
		return Account{}, err
	}
	g.record(op)

	g.mu.RLock()
	defer g.mu.RUnlock()
	acc, ok := g.accounts[accountID]
	if !ok {
		return Account{}, stellar.AccountNotFound(op, accountID)
	}
	acc.Balances = append([]AssetBalance(nil), acc.Balances...)
	return acc, nil
}

func (g *inMemoryGateway) AccountExists(ctx context.Context, accountID string) (bool, error) {
	_, err := g.GetAccount(ctx, accountID)
	if errors.Is(err, stellar.ErrAccountNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (g *inMemoryGateway) GetBalances(ctx context.Context, accountID string) ([]AssetBalance, error) {
	acc, err := g.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return acc.Balances, nil
}

func (g *inMemoryGateway) GetCustomAssetBalance(ctx context.Context, accountID string) (string, bool, error) {
	acc, err := g.GetAccount(ctx, accountID)
	if err != nil {
		return "", false, err
	}
	b, ok := acc.FindBalance(g.assetCode, g.assetIssuer)
	return b.Balance, ok, nil
}

func (g *inMemoryGateway) HealthCheck(_ context.Context) HealthStatus {
	g.record("health check")
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := HealthStatus{IsHealthy: g.healthy, GatewayURL: "memory://", CheckedAt: time.Now().UTC()}
	if !g.healthy {
		s.ErrorMessage = "in-memory gateway marked unhealthy"
	}
	return s
}

func (g *inMemoryGateway) SubmitTransaction(_ context.Context, envelopeXDR string) (SubmitResponse, error) {
	g.record("submit transaction")
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return SubmitResponse{}, g.submitErr
	}
	g.submitted = append(g.submitted, envelopeXDR)
	sum := sha256.Sum256([]byte(envelopeXDR))
	return SubmitResponse{
		Hash:        hex.EncodeToString(sum[:]),
		Ledger:      int32(len(g.submitted)),
		Successful:  true,
		EnvelopeXDR: envelopeXDR,
	}, nil
}
