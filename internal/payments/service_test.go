package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/notification"
	"github.com/aframp/aframp_backend/internal/stellar"
)

type testNotifier struct {
	last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.last = msg
	return nil
}

func TestSignAndSubmitSuccess(t *testing.T) {
	b, g := newBuilder(t)
	notifier := &testNotifier{}
	svc := NewService(b, g, notifier, nil)
	ctx := context.Background()

	draft, err := b.BuildPayment(ctx, afriPayment("10"), Memo{}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	res, err := svc.SignAndSubmit(ctx, draft, sourceSeed)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Signed.Hash == "" || !res.Response.Successful {
		t.Fatalf("unexpected submission %+v", res)
	}
	if got := ledger.Submitted(g); len(got) != 1 || got[0] != res.Signed.EnvelopeXDR {
		t.Fatalf("expected the signed envelope to be submitted, got %v", got)
	}
	if notifier.last.Kind != notification.KindPaymentSubmitted || notifier.last.Destination != destination {
		t.Fatalf("expected notification to be sent, got %+v", notifier.last)
	}
}

func TestSignAndSubmitRejectedIsNotRetried(t *testing.T) {
	b, g := newBuilder(t)
	notifier := &testNotifier{}
	svc := NewService(b, g, notifier, nil)
	ctx := context.Background()

	ledger.FailSubmissions(g, stellar.Rejected("submit transaction", stellar.Rejection{Status: 400, Title: "Transaction Failed", TransactionCode: "tx_bad_seq"}))

	draft, err := b.BuildPayment(ctx, afriPayment("10"), Memo{}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	res, err := svc.SignAndSubmit(ctx, draft, sourceSeed)
	if !errors.Is(err, stellar.ErrSubmissionRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if res.Signed.Hash == "" {
		t.Fatalf("expected the signed hash to be reported alongside the rejection")
	}
	if n := ledger.Calls(g, "submit transaction"); n != 1 {
		t.Fatalf("expected exactly one submission attempt, got %d", n)
	}
	if notifier.last.Kind != "" {
		t.Fatalf("expected no notification on rejection")
	}
}

func TestSignAndSubmitBadSeedNeverSubmits(t *testing.T) {
	b, g := newBuilder(t)
	svc := NewService(b, g, nil, nil)
	ctx := context.Background()

	draft, err := b.BuildPayment(ctx, afriPayment("10"), Memo{}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := svc.SignAndSubmit(ctx, draft, "SBADSEED"); !errors.Is(err, stellar.ErrSigning) {
		t.Fatalf("expected signing error, got %v", err)
	}
	if n := ledger.Calls(g, "submit transaction"); n != 0 {
		t.Fatalf("expected no submission, got %d", n)
	}
}
