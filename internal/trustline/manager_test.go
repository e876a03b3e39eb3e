package trustline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"

	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/stellar"
)

var (
	holder = keypair.MustParseFull("SBPQUZ6G4FZNWFHKUWC5BEYWF6R52E3SEP7R3GWYSM2XTKGF5LNTWW4R").Address()
	issuer = "GBUQWP3BOUZX34TOND2QV7QQ7K7VJTG6VSE7WMLBTMDJLLAW7YKGU6EP"
)

func newManager(t *testing.T, g ledger.Gateway, opts ...Option) *Manager {
	t.Helper()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	m, err := NewManager(g, stellar.DefaultProfile(), Asset{Code: "AFRI", Issuer: issuer}, opts...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func seed(g ledger.Gateway, native string, subentries uint32, extra ...ledger.AssetBalance) {
	balances := append([]ledger.AssetBalance{{AssetType: ledger.AssetTypeNative, Balance: native, IsAuthorized: true}}, extra...)
	ledger.SeedAccount(g, ledger.Account{AccountID: holder, Sequence: 100, SubentryCount: subentries, Balances: balances})
}

func afri(balance string, authorized bool) ledger.AssetBalance {
	return ledger.AssetBalance{AssetType: ledger.AssetTypeCreditAlphanum4, AssetCode: "AFRI", AssetIssuer: issuer, Balance: balance, Limit: "1000.0000000", IsAuthorized: authorized}
}

func TestCheckTrustlineAbsent(t *testing.T) {
	g := ledger.NewInMemory()
	seed(g, "10.0000000", 0)

	s, err := newManager(t, g).CheckTrustline(context.Background(), holder)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if s.Exists || s.Balance != nil || s.Authorized != nil {
		t.Fatalf("expected no trustline, got %+v", s)
	}
}

func TestCheckTrustlineIgnoresOtherIssuers(t *testing.T) {
	g := ledger.NewInMemory()
	other := afri("5.0000000", true)
	other.AssetIssuer = holder
	seed(g, "10.0000000", 1, other)

	s, err := newManager(t, g).CheckTrustline(context.Background(), holder)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if s.Exists {
		t.Fatalf("expected trustline from another issuer to be ignored")
	}
}

func TestVerifyTrustline(t *testing.T) {
	tests := []struct {
		name  string
		lines []ledger.AssetBalance
		want  bool
	}{
		{"missing", nil, false},
		{"unauthorized", []ledger.AssetBalance{afri("0.0000000", false)}, false},
		{"authorized", []ledger.AssetBalance{afri("2.0000000", true)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ledger.NewInMemory()
			seed(g, "10.0000000", uint32(len(tt.lines)), tt.lines...)
			got, err := newManager(t, g).VerifyTrustline(context.Background(), holder)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v got %v", tt.want, got)
			}
		})
	}
}

func TestValidateMinBalance(t *testing.T) {
	tests := []struct {
		name       string
		native     string
		subentries uint32
		lines      []ledger.AssetBalance
		wantErr    bool
	}{
		{"exactly covers new trustline", "1.5000000", 0, nil, false},
		{"short for new trustline", "1.4999999", 0, nil, true},
		{"subentries raise reserve", "2.0000000", 2, nil, true},
		{"existing trustline already counted", "1.5000000", 1, []ledger.AssetBalance{afri("1.0000000", true)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ledger.NewInMemory()
			seed(g, tt.native, tt.subentries, tt.lines...)
			err := newManager(t, g).ValidateMinBalance(context.Background(), holder)
			if tt.wantErr && !errors.Is(err, stellar.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
		})
	}
}

func TestCreateTrustlineTx(t *testing.T) {
	g := ledger.NewInMemory()
	seed(g, "10.0000000", 0)
	m := newManager(t, g)

	tx, err := m.CreateTrustlineTx(context.Background(), holder)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.SequenceNumber != 101 {
		t.Fatalf("expected sequence 101, got %d", tx.SequenceNumber)
	}
	if tx.FeeStroops != txnbuild.MinBaseFee {
		t.Fatalf("expected min fee, got %d", tx.FeeStroops)
	}

	parsed, err := txnbuild.TransactionFromXDR(tx.EnvelopeXDR)
	if err != nil {
		t.Fatalf("parse envelope: %v", err)
	}
	inner, ok := parsed.Transaction()
	if !ok {
		t.Fatalf("expected a plain transaction")
	}
	if len(inner.Signatures()) != 0 {
		t.Fatalf("expected unsigned envelope")
	}
	ops := inner.Operations()
	if len(ops) != 1 {
		t.Fatalf("expected one operation, got %d", len(ops))
	}
	if _, ok := ops[0].(*txnbuild.ChangeTrust); !ok {
		t.Fatalf("expected change trust, got %T", ops[0])
	}
	hash, err := inner.HashHex(stellar.Testnet.Passphrase())
	if err != nil || hash != tx.Hash {
		t.Fatalf("hash mismatch %s vs %s (%v)", hash, tx.Hash, err)
	}
}

func TestCreateTrustlineTxRejections(t *testing.T) {
	ctx := context.Background()

	g := ledger.NewInMemory()
	if _, err := newManager(t, g).CreateTrustlineTx(ctx, "GNOPE"); !errors.Is(err, stellar.ErrInvalidAddress) {
		t.Fatalf("expected invalid address, got %v", err)
	}
	if n := ledger.Calls(g, "get account"); n != 0 {
		t.Fatalf("expected no lookups, got %d", n)
	}

	if _, err := newManager(t, g).CreateTrustlineTx(ctx, holder); !errors.Is(err, stellar.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}

	seed(g, "10.0000000", 1, afri("1.0000000", true))
	if _, err := newManager(t, g).CreateTrustlineTx(ctx, holder); !errors.Is(err, stellar.ErrValidation) {
		t.Fatalf("expected existing trustline to fail validation, got %v", err)
	}

	seed(g, "1.0000000", 0)
	if _, err := newManager(t, g).CreateTrustlineTx(ctx, holder); !errors.Is(err, stellar.ErrValidation) {
		t.Fatalf("expected reserve failure, got %v", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	g := ledger.NewInMemory()
	if _, err := NewManager(g, stellar.DefaultProfile(), Asset{Code: ""}); err == nil {
		t.Fatalf("expected empty code to fail")
	}
	if _, err := NewManager(g, stellar.DefaultProfile(), Asset{Code: "AFRI"}, WithFee(10)); err == nil {
		t.Fatalf("expected low fee to fail")
	}
	if _, err := NewManager(g, stellar.DefaultProfile(), Asset{Code: "AFRI"}, WithFee(math.MaxUint32+1)); err == nil {
		t.Fatalf("expected fee above uint32 to fail")
	}
}
