package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aframp/aframp_backend/internal/stellar"
)

func TestInMemory_InvalidAddressNeverReachesGateway(t *testing.T) {
	g := NewInMemory()
	ctx := context.Background()

	if _, err := g.GetAccount(ctx, "INVALID"); !errors.Is(err, stellar.ErrInvalidAddress) {
		t.Fatalf("expected invalid address, got %v", err)
	}
	if n := Calls(g, "get account"); n != 0 {
		t.Fatalf("expected no gateway calls, got %d", n)
	}
}

func TestInMemory_AccountExists(t *testing.T) {
	g := NewInMemory()
	ctx := context.Background()

	exists, err := g.AccountExists(ctx, testAccount)
	if err != nil {
		t.Fatalf("account exists: %v", err)
	}
	if exists {
		t.Fatalf("expected unknown account to not exist")
	}

	SeedAccount(g, Account{AccountID: testAccount, Sequence: 10, Balances: []AssetBalance{{AssetType: AssetTypeNative, Balance: "5.0000000", IsAuthorized: true}}})
	exists, err = g.AccountExists(ctx, testAccount)
	if err != nil || !exists {
		t.Fatalf("expected seeded account to exist, got %v %v", exists, err)
	}
}

func TestInMemory_CustomAssetBalance(t *testing.T) {
	g := NewInMemory()
	ctx := context.Background()
	SeedAccount(g, Account{AccountID: testAccount, Balances: []AssetBalance{
		{AssetType: AssetTypeNative, Balance: "5.0000000"},
		{AssetType: AssetTypeCreditAlphanum4, AssetCode: "AFRI", AssetIssuer: testIssuer, Balance: "12.0000000"},
	}})

	bal, ok, err := g.GetCustomAssetBalance(ctx, testAccount)
	if err != nil {
		t.Fatalf("custom balance: %v", err)
	}
	if !ok || bal != "12.0000000" {
		t.Fatalf("unexpected balance %q ok=%v", bal, ok)
	}
}

func TestInMemory_ConcurrentReads(t *testing.T) {
	g := NewInMemory()
	ctx := context.Background()
	SeedAccount(g, Account{AccountID: testAccount, Sequence: 1})

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.GetBalances(ctx, testAccount); err != nil {
				t.Errorf("get balances: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := Calls(g, "get account"); n != workers {
		t.Fatalf("expected %d calls, got %d", workers, n)
	}
}

func TestInMemory_Submit(t *testing.T) {
	g := NewInMemory()
	ctx := context.Background()

	res, err := g.SubmitTransaction(ctx, "AAAA")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Hash == "" || !res.Successful {
		t.Fatalf("unexpected submit response %+v", res)
	}

	FailSubmissions(g, stellar.Rejected("submit transaction", stellar.Rejection{Status: 400, TransactionCode: "tx_bad_seq"}))
	if _, err := g.SubmitTransaction(ctx, "BBBB"); !errors.Is(err, stellar.ErrSubmissionRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if got := Submitted(g); len(got) != 1 {
		t.Fatalf("expected one accepted envelope, got %d", len(got))
	}
}
