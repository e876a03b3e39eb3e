// Package trustline manages an account's relationship to the application asset.
package trustline

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/txnbuild"

	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/logging"
	"github.com/aframp/aframp_backend/internal/stellar"
)

const (
	// BaseReserveXLM is the per-entry reserve of the network in lumens.
	BaseReserveXLM = "0.5"
	// baseEntries counts the account itself twice, as the network does.
	baseEntries = 2

	defaultTxTimeout = 5 * time.Minute
)

// Asset identifies the credit asset a trustline points at. An empty Issuer
// matches any issuer on reads but cannot be used to build a transaction.
type Asset struct {
	Code   string `json:"asset_code"`
	Issuer string `json:"asset_issuer,omitempty"`
}

// Status is the current trustline state of an account. Balance and
// Authorized are nil when no trustline exists.
type Status struct {
	Exists     bool    `json:"exists"`
	Balance    *string `json:"balance"`
	Limit      *string `json:"limit,omitempty"`
	Authorized *bool   `json:"authorized"`
}

// Transaction is an unsigned change-trust envelope ready for signing.
type Transaction struct {
	AccountID      string    `json:"account_id"`
	AssetCode      string    `json:"asset_code"`
	AssetIssuer    string    `json:"asset_issuer"`
	Limit          string    `json:"limit"`
	SequenceNumber int64     `json:"sequence_number"`
	FeeStroops     int64     `json:"fee_stroops"`
	ValidBefore    time.Time `json:"valid_before"`
	EnvelopeXDR    string    `json:"envelope_xdr"`
	Hash           string    `json:"hash"`
}

// Manager answers trustline questions by reading the ledger on every call.
type Manager struct {
	accounts    ledger.AccountReader
	profile     stellar.NetworkProfile
	asset       Asset
	baseReserve decimal.Decimal
	fee         int64
	txTimeout   time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// Option customises a Manager.
type Option func(*Manager)

// WithBaseReserve overrides the network base reserve, in lumens.
func WithBaseReserve(xlm decimal.Decimal) Option {
	return func(m *Manager) { m.baseReserve = xlm }
}

// WithFee sets the per-operation fee in stroops.
func WithFee(stroops int64) Option {
	return func(m *Manager) { m.fee = stroops }
}

// WithTxTimeout bounds how long a built envelope stays valid.
func WithTxTimeout(d time.Duration) Option {
	return func(m *Manager) { m.txTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager builds a manager for asset.
func NewManager(accounts ledger.AccountReader, profile stellar.NetworkProfile, asset Asset, opts ...Option) (*Manager, error) {
	const op = "trustline manager"
	if err := stellar.ValidateAssetCode(op, asset.Code); err != nil {
		return nil, err
	}
	if asset.Issuer != "" && !stellar.HasValidChecksum(asset.Issuer) {
		return nil, stellar.InvalidAddress(op, asset.Issuer)
	}
	m := &Manager{
		accounts:    accounts,
		profile:     profile,
		asset:       asset,
		baseReserve: decimal.RequireFromString(BaseReserveXLM),
		fee:         txnbuild.MinBaseFee,
		txTimeout:   defaultTxTimeout,
		now:         time.Now,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.fee < txnbuild.MinBaseFee {
		return nil, stellar.Validation(op, "fee %d is below the network minimum %d", m.fee, txnbuild.MinBaseFee)
	}
	if m.fee > math.MaxUint32 {
		return nil, stellar.Validation(op, "fee %d does not fit the uint32 fee field", m.fee)
	}
	return m, nil
}

// Asset returns the asset the manager tracks.
func (m *Manager) Asset() Asset { return m.asset }

// CheckTrustline reports whether accountID trusts the asset.
func (m *Manager) CheckTrustline(ctx context.Context, accountID string) (Status, error) {
	acc, err := m.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return Status{}, err
	}
	return m.statusOf(acc), nil
}

func (m *Manager) statusOf(acc ledger.Account) Status {
	b, ok := acc.FindBalance(m.asset.Code, m.asset.Issuer)
	if !ok {
		return Status{}
	}
	balance, limit, authorized := b.Balance, b.Limit, b.IsAuthorized
	s := Status{Exists: true, Balance: &balance, Authorized: &authorized}
	if limit != "" {
		s.Limit = &limit
	}
	return s
}

// VerifyTrustline is true only for an existing and authorized trustline.
func (m *Manager) VerifyTrustline(ctx context.Context, accountID string) (bool, error) {
	s, err := m.CheckTrustline(ctx, accountID)
	if err != nil {
		return false, err
	}
	return s.Exists && s.Authorized != nil && *s.Authorized, nil
}

// ValidateMinBalance fails when the native balance cannot cover the reserve
// needed to hold the trustline.
func (m *Manager) ValidateMinBalance(ctx context.Context, accountID string) error {
	acc, err := m.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	return m.checkReserve(acc, m.statusOf(acc).Exists)
}

// RequiredBalance returns the minimum native balance for acc, counting one
// more subentry when the trustline does not exist yet.
func (m *Manager) RequiredBalance(acc ledger.Account, trustlineExists bool) decimal.Decimal {
	entries := int64(baseEntries) + int64(acc.SubentryCount)
	if !trustlineExists {
		entries++
	}
	return m.baseReserve.Mul(decimal.NewFromInt(entries))
}

func (m *Manager) checkReserve(acc ledger.Account, trustlineExists bool) error {
	const op = "validate min balance"
	required := m.RequiredBalance(acc, trustlineExists)
	native := decimal.Zero
	if b, ok := acc.NativeBalance(); ok {
		native = stellar.ParseAmount(b.Balance)
	}
	if native.LessThan(required) {
		return stellar.Validation(op, "native balance %s is below the required reserve %s", native.StringFixed(stellar.MaxDecimals), required.StringFixed(stellar.MaxDecimals))
	}
	return nil
}

// CreateTrustlineTx builds an unsigned change-trust envelope for accountID.
// It is not submitted; the caller signs it with the account's key.
func (m *Manager) CreateTrustlineTx(ctx context.Context, accountID string) (Transaction, error) {
	const op = "create trustline"
	if err := stellar.ValidateAccountID(op, accountID); err != nil {
		return Transaction{}, err
	}
	if m.asset.Issuer == "" {
		return Transaction{}, stellar.Validation(op, "issuer for %s is not configured", m.asset.Code)
	}

	acc, err := m.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return Transaction{}, err
	}
	if m.statusOf(acc).Exists {
		return Transaction{}, stellar.Validation(op, "trustline to %s already exists", m.asset.Code)
	}
	if err := m.checkReserve(acc, false); err != nil {
		return Transaction{}, err
	}

	line, err := txnbuild.CreditAsset{Code: m.asset.Code, Issuer: m.asset.Issuer}.ToChangeTrustAsset()
	if err != nil {
		return Transaction{}, stellar.Validation(op, "asset: %v", err)
	}

	validBefore := m.now().Add(m.txTimeout).UTC().Truncate(time.Second)
	seq := acc.Sequence + 1
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: accountID, Sequence: seq},
		IncrementSequenceNum: false,
		Operations: []txnbuild.Operation{
			&txnbuild.ChangeTrust{Line: line, Limit: txnbuild.MaxTrustlineLimit},
		},
		BaseFee:       m.fee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimebounds(0, validBefore.Unix())},
	})
	if err != nil {
		return Transaction{}, stellar.Validation(op, "build envelope: %v", err)
	}

	envelope, err := tx.Base64()
	if err != nil {
		return Transaction{}, stellar.Validation(op, "encode envelope: %v", err)
	}
	hash, err := tx.HashHex(m.profile.Passphrase)
	if err != nil {
		return Transaction{}, stellar.Validation(op, "hash envelope: %v", err)
	}

	m.logger.Info("trustline transaction built", "account", accountID, "asset", m.asset.Code, "sequence", seq, "hash", hash)
	return Transaction{
		AccountID:      accountID,
		AssetCode:      m.asset.Code,
		AssetIssuer:    m.asset.Issuer,
		Limit:          txnbuild.MaxTrustlineLimit,
		SequenceNumber: seq,
		FeeStroops:     m.fee,
		ValidBefore:    validBefore,
		EnvelopeXDR:    envelope,
		Hash:           hash,
	}, nil
}
