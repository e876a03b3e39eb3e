package payments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/logging"
	"github.com/aframp/aframp_backend/internal/notification"
)

// Submitter hands signed envelopes to the network.
type Submitter interface {
	SubmitTransaction(ctx context.Context, envelopeXDR string) (ledger.SubmitResponse, error)
}

// Service wires the builder to submission and notifications.
type Service struct {
	builder   *Builder
	submitter Submitter
	notifier  notification.Notifier
	logger    *slog.Logger
}

// NewService constructs a payment service.
func NewService(builder *Builder, submitter Submitter, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{builder: builder, submitter: submitter, notifier: notifier, logger: logger}
}

// Builder exposes the underlying builder.
func (s *Service) Builder() *Builder { return s.builder }

// Submission is the result of a signed and accepted transaction.
type Submission struct {
	Signed   Signed                `json:"signed"`
	Response ledger.SubmitResponse `json:"horizon_response"`
}

// Submit sends an already signed envelope. Failures are returned as is and
// never retried here; the caller must rebuild with a fresh sequence.
func (s *Service) Submit(ctx context.Context, signed Signed) (ledger.SubmitResponse, error) {
	return s.submitter.SubmitTransaction(ctx, signed.EnvelopeXDR)
}

// SignAndSubmit signs draft with secretSeed and submits it.
func (s *Service) SignAndSubmit(ctx context.Context, draft Draft, secretSeed string) (Submission, error) {
	signed, err := s.builder.SignTransaction(draft, secretSeed)
	if err != nil {
		return Submission{}, err
	}
	res, err := s.Submit(ctx, signed)
	if err != nil {
		s.logger.Warn("payment submission failed", "hash", signed.Hash, "source", draft.Source, "error", err)
		return Submission{Signed: signed}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindPaymentSubmitted,
			Destination: draft.Destination,
			Body:        fmt.Sprintf("You received %s %s from %s", draft.Amount, draft.AssetCode, draft.Source),
		})
	}
	return Submission{Signed: signed, Response: res}, nil
}

// SignAndSubmitEnvelope signs a prepared envelope, e.g. a change-trust
// transaction, and submits it.
func (s *Service) SignAndSubmitEnvelope(ctx context.Context, envelopeXDR, secretSeed string) (Submission, error) {
	signed, err := s.builder.SignEnvelope(envelopeXDR, secretSeed)
	if err != nil {
		return Submission{}, err
	}
	res, err := s.Submit(ctx, signed)
	if err != nil {
		return Submission{Signed: signed}, err
	}
	return Submission{Signed: signed, Response: res}, nil
}
