// Package ledger talks to the Stellar network through its Horizon gateway.
package ledger

import (
	"context"
	"time"
)

const (
	// AssetTypeNative marks the lumen balance line.
	AssetTypeNative = "native"
	// AssetTypeCreditAlphanum4 is used for codes of 1-4 characters.
	AssetTypeCreditAlphanum4 = "credit_alphanum4"
	// AssetTypeCreditAlphanum12 is used for codes of 5-12 characters.
	AssetTypeCreditAlphanum12 = "credit_alphanum12"

	// DefaultCustomAssetCode is the application asset tracked by GetCustomAssetBalance.
	DefaultCustomAssetCode = "AFRI"
)

// Thresholds are the signing weight thresholds of an account.
type Thresholds struct {
	Low  uint8 `json:"low_threshold"`
	Med  uint8 `json:"med_threshold"`
	High uint8 `json:"high_threshold"`
}

// Flags are the issuer authorization flags of an account.
type Flags struct {
	AuthRequired        bool `json:"auth_required"`
	AuthRevocable       bool `json:"auth_revocable"`
	AuthImmutable       bool `json:"auth_immutable"`
	AuthClawbackEnabled bool `json:"auth_clawback_enabled"`
}

// Signer is one weighted signer of an account.
type Signer struct {
	Key    string `json:"key"`
	Weight uint8  `json:"weight"`
	Type   string `json:"type"`
}

// AssetBalance is a single balance line. Amounts stay decimal strings.
type AssetBalance struct {
	AssetType                         string `json:"asset_type"`
	AssetCode                         string `json:"asset_code,omitempty"`
	AssetIssuer                       string `json:"asset_issuer,omitempty"`
	Balance                           string `json:"balance"`
	Limit                             string `json:"limit,omitempty"`
	IsAuthorized                      bool   `json:"is_authorized"`
	IsAuthorizedToMaintainLiabilities bool   `json:"is_authorized_to_maintain_liabilities"`
	LastModifiedLedger                uint32 `json:"last_modified_ledger,omitempty"`
}

// IsNative reports whether the line holds lumens.
func (b AssetBalance) IsNative() bool {
	return b.AssetType == AssetTypeNative
}

// Account is the domain view of a ledger account.
type Account struct {
	AccountID          string            `json:"account_id"`
	Sequence           int64             `json:"sequence"`
	SubentryCount      uint32            `json:"subentry_count"`
	Thresholds         Thresholds        `json:"thresholds"`
	Flags              Flags             `json:"flags"`
	Balances           []AssetBalance    `json:"balances"`
	Signers            []Signer          `json:"signers"`
	Data               map[string]string `json:"data"`
	LastModifiedLedger uint32            `json:"last_modified_ledger"`
	CreatedAt          time.Time         `json:"created_at"`
}

// NativeBalance returns the lumen balance line, if any.
func (a Account) NativeBalance() (AssetBalance, bool) {
	for _, b := range a.Balances {
		if b.IsNative() {
			return b, true
		}
	}
	return AssetBalance{}, false
}

// FindBalance returns the credit line for code, matching issuer when it is
// non-empty.
func (a Account) FindBalance(code, issuer string) (AssetBalance, bool) {
	for _, b := range a.Balances {
		if b.IsNative() || b.AssetCode != code {
			continue
		}
		if issuer != "" && b.AssetIssuer != issuer {
			continue
		}
		return b, true
	}
	return AssetBalance{}, false
}

// HealthStatus is the outcome of a single gateway probe.
type HealthStatus struct {
	IsHealthy      bool      `json:"is_healthy"`
	GatewayURL     string    `json:"horizon_url"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	CheckedAt      time.Time `json:"last_check"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

// SubmitResponse is the gateway's acknowledgement of an accepted transaction.
type SubmitResponse struct {
	Hash        string `json:"hash"`
	Ledger      int32  `json:"ledger"`
	Successful  bool   `json:"successful"`
	EnvelopeXDR string `json:"envelope_xdr"`
	ResultXDR   string `json:"result_xdr"`
}

// AccountReader is the read side used by the trustline manager and the
// payment builder.
type AccountReader interface {
	GetAccount(ctx context.Context, accountID string) (Account, error)
}

// Gateway is the full client surface. Client and InMemory implement it.
type Gateway interface {
	AccountReader
	AccountExists(ctx context.Context, accountID string) (bool, error)
	GetBalances(ctx context.Context, accountID string) ([]AssetBalance, error)
	GetCustomAssetBalance(ctx context.Context, accountID string) (string, bool, error)
	HealthCheck(ctx context.Context) HealthStatus
	SubmitTransaction(ctx context.Context, envelopeXDR string) (SubmitResponse, error)
}
