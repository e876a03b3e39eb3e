// Package trustlineop keeps the audit trail of trustline operations.
package trustlineop

import (
	"encoding/json"
	"time"
)

// Type is the kind of change requested on a trustline.
type Type string

const (
	TypeCreate Type = "create"
	TypeUpdate Type = "update"
	TypeRemove Type = "remove"
)

// Status is the lifecycle state of an operation record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (t Type) valid() bool {
	switch t {
	case TypeCreate, TypeUpdate, TypeRemove:
		return true
	}
	return false
}

// Final reports whether s ends the lifecycle.
func (s Status) Final() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Operation is one trustline change, created pending and resolved once.
type Operation struct {
	ID              string          `json:"id"`
	WalletAddress   string          `json:"wallet_address"`
	AssetCode       string          `json:"asset_code"`
	Issuer          string          `json:"issuer,omitempty"`
	Type            Type            `json:"operation_type"`
	Status          Status          `json:"status"`
	TransactionHash string          `json:"transaction_hash,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	Metadata        json.RawMessage `json:"metadata"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
