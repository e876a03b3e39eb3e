package trustlineop

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aframp/aframp_backend/internal/notification"
	"github.com/aframp/aframp_backend/internal/stellar"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Service records trustline operations and their outcome.
type Service struct {
	repo     Repository
	notifier notification.Notifier
	now      func() time.Time
}

// NewService constructs a trustline operation service.
func NewService(repo Repository, notifier notification.Notifier) *Service {
	return &Service{repo: repo, notifier: notifier, now: time.Now}
}

// RecordInput is the data needed to open a pending record.
type RecordInput struct {
	WalletAddress string
	AssetCode     string
	Issuer        string
	Type          Type
	Metadata      json.RawMessage
}

// Record stores a new operation in the pending state.
func (s *Service) Record(ctx context.Context, in RecordInput) (Operation, error) {
	const op = "record trustline operation"
	if err := stellar.ValidateAccountID(op, in.WalletAddress); err != nil {
		return Operation{}, err
	}
	if err := stellar.ValidateAssetCode(op, in.AssetCode); err != nil {
		return Operation{}, err
	}
	if in.Issuer != "" {
		if err := stellar.ValidateAccountID(op, in.Issuer); err != nil {
			return Operation{}, err
		}
	}
	if !in.Type.valid() {
		return Operation{}, stellar.Validation(op, "unknown operation type %q", in.Type)
	}
	metadata := in.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	} else if !json.Valid(metadata) {
		return Operation{}, stellar.Validation(op, "metadata must be valid json")
	}

	now := s.now().UTC()
	rec := Operation{
		ID:            uuid.NewString(),
		WalletAddress: in.WalletAddress,
		AssetCode:     in.AssetCode,
		Issuer:        in.Issuer,
		Type:          in.Type,
		Status:        StatusPending,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return Operation{}, fmt.Errorf("store trustline operation: %w", err)
	}
	return rec, nil
}

// StatusUpdate resolves a pending record.
type StatusUpdate struct {
	Status          Status
	TransactionHash string
	ErrorMessage    string
}

// UpdateStatus moves a pending record to completed or failed. Any other
// transition returns ErrInvalidTransition.
func (s *Service) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) (Operation, error) {
	const op = "update trustline operation"
	if !upd.Status.Final() {
		return Operation{}, stellar.Validation(op, "status must be completed or failed, got %q", upd.Status)
	}
	if upd.Status == StatusFailed && upd.ErrorMessage == "" {
		return Operation{}, stellar.Validation(op, "failed operations need an error message")
	}

	rec, err := s.repo.Resolve(ctx, id, Resolution{
		Status:          upd.Status,
		TransactionHash: upd.TransactionHash,
		ErrorMessage:    upd.ErrorMessage,
		UpdatedAt:       s.now().UTC(),
	})
	if err != nil {
		return Operation{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTrustlineOperation,
			Destination: rec.WalletAddress,
			Body:        fmt.Sprintf("Trustline %s for %s is %s", rec.Type, rec.AssetCode, rec.Status),
		})
	}
	return rec, nil
}

// Get returns a record by id.
func (s *Service) Get(ctx context.Context, id string) (Operation, error) {
	return s.repo.Get(ctx, id)
}

// ListByWallet returns the newest records for wallet. limit <= 0 selects the
// default; larger values are capped.
func (s *Service) ListByWallet(ctx context.Context, wallet string, limit int) ([]Operation, error) {
	if err := stellar.ValidateAccountID("list trustline operations", wallet); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	ops, err := s.repo.ListByWallet(ctx, wallet, limit)
	if err != nil {
		return nil, err
	}
	if ops == nil {
		ops = []Operation{}
	}
	return ops, nil
}
