package payments

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/logging"
	"github.com/aframp/aframp_backend/internal/stellar"
)

const (
	defaultTxTimeout = 5 * time.Minute
	maxMemoTextBytes = 28
)

// MemoType selects how a memo value is encoded on the ledger.
type MemoType string

const (
	MemoNone MemoType = "none"
	MemoText MemoType = "text"
	MemoID   MemoType = "id"
	MemoHash MemoType = "hash"
)

// Memo is an optional payment annotation. Hash values are 64 hex characters.
type Memo struct {
	Type  MemoType `json:"type"`
	Value string   `json:"value,omitempty"`
}

// Operation describes a payment to build.
type Operation struct {
	Source      string
	Destination string
	Amount      string
	AssetCode   string
	AssetIssuer string
}

// Draft is a fully resolved, unsigned payment. Every field is committed to
// by the transaction hash once signed.
type Draft struct {
	Source         string    `json:"source"`
	Destination    string    `json:"destination"`
	Amount         string    `json:"amount"`
	AssetCode      string    `json:"asset_code"`
	AssetIssuer    string    `json:"asset_issuer,omitempty"`
	Memo           Memo      `json:"memo"`
	FeeStroops     int64     `json:"fee_stroops"`
	SequenceNumber int64     `json:"sequence_number"`
	ValidBefore    time.Time `json:"valid_before"`
}

// Signed is a signed envelope ready for submission. It never carries keys.
type Signed struct {
	EnvelopeXDR string `json:"envelope_xdr"`
	Hash        string `json:"hash"`
}

// Builder assembles and signs payment transactions.
type Builder struct {
	accounts  ledger.AccountReader
	profile   stellar.NetworkProfile
	txTimeout time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithTxTimeout bounds how long a draft stays valid after it is built.
func WithTxTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) { b.txTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder returns a builder that reads sequence numbers from accounts.
func NewBuilder(accounts ledger.AccountReader, profile stellar.NetworkProfile, opts ...BuilderOption) *Builder {
	b := &Builder{
		accounts:  accounts,
		profile:   profile,
		txTimeout: defaultTxTimeout,
		now:       time.Now,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildPayment validates the request, then reads the source sequence and
// returns a draft for sequence+1. Input errors never reach the network.
func (b *Builder) BuildPayment(ctx context.Context, op Operation, memo Memo, feeOverride *int64) (Draft, error) {
	const name = "build payment"

	fee := int64(txnbuild.MinBaseFee)
	if feeOverride != nil {
		fee = *feeOverride
	}
	if memo.Type == "" {
		memo.Type = MemoNone
	}
	draft := Draft{
		Source:      op.Source,
		Destination: op.Destination,
		Amount:      op.Amount,
		AssetCode:   op.AssetCode,
		AssetIssuer: op.AssetIssuer,
		Memo:        memo,
		FeeStroops:  fee,
	}
	if err := validateDraftInputs(name, draft); err != nil {
		return Draft{}, err
	}

	acc, err := b.accounts.GetAccount(ctx, op.Source)
	if err != nil {
		return Draft{}, err
	}
	draft.SequenceNumber = acc.Sequence + 1
	draft.ValidBefore = b.now().Add(b.txTimeout).UTC().Truncate(time.Second)

	b.logger.Info("payment drafted", "source", draft.Source, "destination", draft.Destination,
		"amount", draft.Amount, "asset", draft.AssetCode, "sequence", draft.SequenceNumber, "fee", draft.FeeStroops)
	return draft, nil
}

// SignTransaction builds the canonical envelope for draft, bound to the
// network passphrase, and signs it. It does no I/O and is deterministic.
func (b *Builder) SignTransaction(draft Draft, secretSeed string) (Signed, error) {
	const name = "sign transaction"
	if err := validateDraftInputs(name, draft); err != nil {
		return Signed{}, err
	}
	if draft.SequenceNumber <= 0 {
		return Signed{}, stellar.Validation(name, "sequence number must be positive")
	}
	if draft.ValidBefore.IsZero() {
		return Signed{}, stellar.Validation(name, "valid_before is required")
	}

	kp, err := parseSeed(name, secretSeed)
	if err != nil {
		return Signed{}, err
	}

	tx, err := newPaymentTx(draft)
	if err != nil {
		return Signed{}, stellar.Validation(name, "build envelope: %v", err)
	}
	return b.sign(name, tx, kp)
}

// SignEnvelope signs an existing unsigned envelope, such as one produced by
// the trustline manager.
func (b *Builder) SignEnvelope(envelopeXDR, secretSeed string) (Signed, error) {
	const name = "sign envelope"
	kp, err := parseSeed(name, secretSeed)
	if err != nil {
		return Signed{}, err
	}
	generic, err := txnbuild.TransactionFromXDR(envelopeXDR)
	if err != nil {
		return Signed{}, stellar.Validation(name, "decode envelope: %v", err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return Signed{}, stellar.Validation(name, "fee bump envelopes are not supported")
	}
	return b.sign(name, tx, kp)
}

func (b *Builder) sign(name string, tx *txnbuild.Transaction, kp *keypair.Full) (Signed, error) {
	signed, err := tx.Sign(b.profile.Passphrase, kp)
	if err != nil {
		return Signed{}, stellar.Signing(name, "sign envelope", err)
	}
	envelope, err := signed.Base64()
	if err != nil {
		return Signed{}, stellar.Signing(name, "encode envelope", err)
	}
	hash, err := signed.HashHex(b.profile.Passphrase)
	if err != nil {
		return Signed{}, stellar.Signing(name, "hash envelope", err)
	}
	b.logger.Debug("transaction signed", "hash", hash, "signer", kp.Address())
	return Signed{EnvelopeXDR: envelope, Hash: hash}, nil
}

// parseSeed never includes the seed or the parser error in its result.
func parseSeed(name, secretSeed string) (*keypair.Full, error) {
	kp, err := keypair.ParseFull(secretSeed)
	if err != nil {
		return nil, stellar.Signing(name, "malformed secret seed", nil)
	}
	return kp, nil
}

func validateDraftInputs(name string, d Draft) error {
	if err := stellar.ValidateAccountID(name, d.Source); err != nil {
		return err
	}
	if err := stellar.ValidateAccountID(name, d.Destination); err != nil {
		return err
	}
	if _, err := stellar.ParsePositiveAmount(name, d.Amount); err != nil {
		return err
	}
	if !stellar.IsNativeAsset(d.AssetCode, d.AssetIssuer) {
		if err := stellar.ValidateAssetCode(name, d.AssetCode); err != nil {
			return err
		}
		if d.AssetIssuer == "" {
			return stellar.Validation(name, "asset %s needs an issuer", d.AssetCode)
		}
		if err := stellar.ValidateAccountID(name, d.AssetIssuer); err != nil {
			return err
		}
	}
	if d.FeeStroops < txnbuild.MinBaseFee {
		return stellar.Validation(name, "fee %d is below the network minimum %d", d.FeeStroops, txnbuild.MinBaseFee)
	}
	if d.FeeStroops > math.MaxUint32 {
		return stellar.Validation(name, "fee %d does not fit the uint32 fee field", d.FeeStroops)
	}
	if _, err := d.Memo.toTxnbuild(); err != nil {
		return stellar.Validation(name, "memo: %v", err)
	}
	return nil
}

func newPaymentTx(d Draft) (*txnbuild.Transaction, error) {
	var asset txnbuild.Asset = txnbuild.NativeAsset{}
	if !stellar.IsNativeAsset(d.AssetCode, d.AssetIssuer) {
		asset = txnbuild.CreditAsset{Code: d.AssetCode, Issuer: d.AssetIssuer}
	}
	memo, err := d.Memo.toTxnbuild()
	if err != nil {
		return nil, err
	}
	return txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: d.Source, Sequence: d.SequenceNumber},
		IncrementSequenceNum: false,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{Destination: d.Destination, Amount: d.Amount, Asset: asset},
		},
		BaseFee:       d.FeeStroops,
		Memo:          memo,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimebounds(0, d.ValidBefore.Unix())},
	})
}

func (m Memo) toTxnbuild() (txnbuild.Memo, error) {
	switch m.Type {
	case "", MemoNone:
		if m.Value != "" {
			return nil, errors.New("value given without a memo type")
		}
		return nil, nil
	case MemoText:
		if len(m.Value) > maxMemoTextBytes {
			return nil, errors.New("text memo exceeds 28 bytes")
		}
		return txnbuild.MemoText(m.Value), nil
	case MemoID:
		id, err := strconv.ParseUint(m.Value, 10, 64)
		if err != nil {
			return nil, errors.New("id memo must be an unsigned 64-bit integer")
		}
		return txnbuild.MemoID(id), nil
	case MemoHash:
		raw, err := hex.DecodeString(m.Value)
		if err != nil || len(raw) != 32 {
			return nil, errors.New("hash memo must be 64 hex characters")
		}
		var h txnbuild.MemoHash
		copy(h[:], raw)
		return h, nil
	default:
		return nil, fmt.Errorf("unknown memo type %q", m.Type)
	}
}
