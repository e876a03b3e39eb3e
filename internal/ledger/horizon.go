package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wire representations of Horizon responses. Only the fields the service
// reads are declared; conversion into domain types happens in toDomain.

type horizonAccount struct {
	ID                 string            `json:"id"`
	AccountID          string            `json:"account_id"`
	Sequence           string            `json:"sequence"`
	SubentryCount      uint32            `json:"subentry_count"`
	Thresholds         Thresholds        `json:"thresholds"`
	Flags              Flags             `json:"flags"`
	Balances           []horizonBalance  `json:"balances"`
	Signers            []Signer          `json:"signers"`
	Data               map[string]string `json:"data"`
	LastModifiedLedger uint32            `json:"last_modified_ledger"`
	LastModifiedTime   *time.Time        `json:"last_modified_time"`
	CreatedAt          *time.Time        `json:"created_at"`
}

type horizonBalance struct {
	AssetType                         string  `json:"asset_type"`
	AssetCode                         string  `json:"asset_code"`
	AssetIssuer                       string  `json:"asset_issuer"`
	LiquidityPoolID                   string  `json:"liquidity_pool_id"`
	Balance                           string  `json:"balance"`
	Limit                             string  `json:"limit"`
	IsAuthorized                      *bool   `json:"is_authorized"`
	IsAuthorizedToMaintainLiabilities *bool   `json:"is_authorized_to_maintain_liabilities"`
	LastModifiedLedger                *uint32 `json:"last_modified_ledger"`
}

type horizonRoot struct {
	HorizonVersion    string `json:"horizon_version"`
	CoreVersion       string `json:"core_version"`
	HistoryLatest     int64  `json:"history_latest_ledger"`
	NetworkPassphrase string `json:"network_passphrase"`
}

type horizonSubmitResult struct {
	Hash        string `json:"hash"`
	Ledger      int32  `json:"ledger"`
	Successful  *bool  `json:"successful"`
	EnvelopeXDR string `json:"envelope_xdr"`
	ResultXDR   string `json:"result_xdr"`
}

// horizonProblem is the problem+json document Horizon returns on errors.
type horizonProblem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Extras struct {
		EnvelopeXDR string `json:"envelope_xdr"`
		ResultXDR   string `json:"result_xdr"`
		ResultCodes struct {
			Transaction string   `json:"transaction"`
			Operations  []string `json:"operations"`
		} `json:"result_codes"`
	} `json:"extras"`
}

func (a horizonAccount) toDomain() (Account, error) {
	seq, err := strconv.ParseInt(a.Sequence, 10, 64)
	if err != nil {
		return Account{}, fmt.Errorf("sequence %q: %w", a.Sequence, err)
	}

	id := a.AccountID
	if id == "" {
		id = a.ID
	}

	balances := make([]AssetBalance, 0, len(a.Balances))
	natives := 0
	for _, hb := range a.Balances {
		b, ok, err := hb.toDomain()
		if err != nil {
			return Account{}, err
		}
		if !ok {
			continue
		}
		if b.IsNative() {
			natives++
		}
		balances = append(balances, b)
	}
	if natives > 1 {
		return Account{}, fmt.Errorf("account %s has %d native balance lines", id, natives)
	}

	acc := Account{
		AccountID:          id,
		Sequence:           seq,
		SubentryCount:      a.SubentryCount,
		Thresholds:         a.Thresholds,
		Flags:              a.Flags,
		Balances:           balances,
		Signers:            a.Signers,
		Data:               a.Data,
		LastModifiedLedger: a.LastModifiedLedger,
	}
	if acc.Data == nil {
		acc.Data = map[string]string{}
	}
	switch {
	case a.CreatedAt != nil:
		acc.CreatedAt = a.CreatedAt.UTC()
	case a.LastModifiedTime != nil:
		acc.CreatedAt = a.LastModifiedTime.UTC()
	}
	return acc, nil
}

// toDomain returns ok=false for liquidity pool shares, which are not asset
// balances.
func (b horizonBalance) toDomain() (AssetBalance, bool, error) {
	switch b.AssetType {
	case "liquidity_pool_shares":
		return AssetBalance{}, false, nil
	case AssetTypeNative:
	case AssetTypeCreditAlphanum4, AssetTypeCreditAlphanum12:
		if b.AssetCode == "" || b.AssetIssuer == "" {
			return AssetBalance{}, false, fmt.Errorf("%s balance without code or issuer", b.AssetType)
		}
	default:
		if !strings.HasPrefix(b.AssetType, "credit_") {
			return AssetBalance{}, false, fmt.Errorf("unknown asset type %q", b.AssetType)
		}
	}

	out := AssetBalance{
		AssetType:   b.AssetType,
		AssetCode:   b.AssetCode,
		AssetIssuer: b.AssetIssuer,
		Balance:     b.Balance,
		Limit:       b.Limit,
	}
	// Native lines omit the authorization flags; lumens are always authorized.
	out.IsAuthorized = b.AssetType == AssetTypeNative
	out.IsAuthorizedToMaintainLiabilities = out.IsAuthorized
	if b.IsAuthorized != nil {
		out.IsAuthorized = *b.IsAuthorized
	}
	if b.IsAuthorizedToMaintainLiabilities != nil {
		out.IsAuthorizedToMaintainLiabilities = *b.IsAuthorizedToMaintainLiabilities
	}
	if b.LastModifiedLedger != nil {
		out.LastModifiedLedger = *b.LastModifiedLedger
	}
	return out, true, nil
}

func (r horizonSubmitResult) toDomain() SubmitResponse {
	out := SubmitResponse{
		Hash:        r.Hash,
		Ledger:      r.Ledger,
		Successful:  true,
		EnvelopeXDR: r.EnvelopeXDR,
		ResultXDR:   r.ResultXDR,
	}
	if r.Successful != nil {
		out.Successful = *r.Successful
	}
	return out
}
