package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aframp/aframp_backend/internal/stellar"
)

const (
	testAccount = "GCJRI5CIWK5IU67Q6DGA7QW52JDKRO7JEAHQKFNDUJUPEZGURDBX3LDX"
	testIssuer  = "GBUQWP3BOUZX34TOND2QV7QQ7K7VJTG6VSE7WMLBTMDJLLAW7YKGU6EP"
)

func accountJSON(seq string, balances ...map[string]any) string {
	if len(balances) == 0 {
		balances = []map[string]any{{"asset_type": "native", "balance": "100.0000000"}}
	}
	body := map[string]any{
		"id":                   testAccount,
		"account_id":           testAccount,
		"sequence":             seq,
		"subentry_count":       1,
		"thresholds":           map[string]any{"low_threshold": 0, "med_threshold": 0, "high_threshold": 0},
		"flags":                map[string]any{"auth_required": false},
		"balances":             balances,
		"signers":              []map[string]any{{"key": testAccount, "weight": 1, "type": "ed25519_public_key"}},
		"data":                 map[string]string{},
		"last_modified_ledger": 42,
		"last_modified_time":   "2024-05-01T10:00:00Z",
	}
	b, _ := json.Marshal(body)
	return string(b)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	profile := stellar.DefaultProfile()
	profile.RequestTimeout = 200 * time.Millisecond
	base := []Option{
		WithBaseURL(srv.URL),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}
	c, err := NewClient(profile, append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestGetAccount(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/accounts/"+testAccount, r.URL.Path)
		_, _ = io.WriteString(w, accountJSON("123456789",
			map[string]any{"asset_type": "native", "balance": "100.0000000"},
			map[string]any{"asset_type": "credit_alphanum4", "asset_code": "AFRI", "asset_issuer": testIssuer,
				"balance": "25.5000000", "limit": "922337203685.4775807", "is_authorized": true,
				"is_authorized_to_maintain_liabilities": true, "last_modified_ledger": 40},
			map[string]any{"asset_type": "liquidity_pool_shares", "liquidity_pool_id": "abcd", "balance": "1.0000000"},
		))
	}))
	defer srv.Close()

	acc, err := newTestClient(t, srv).GetAccount(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, testAccount, acc.AccountID)
	assert.Equal(t, int64(123456789), acc.Sequence)
	assert.Equal(t, uint32(1), acc.SubentryCount)
	require.Len(t, acc.Balances, 2)
	assert.True(t, acc.Balances[0].IsNative())
	assert.Equal(t, "25.5000000", acc.Balances[1].Balance)
	assert.True(t, acc.Balances[1].IsAuthorized)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), acc.CreatedAt)
}

func TestGetAccountInvalidAddressMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetAccount(context.Background(), "INVALID_ADDRESS")
	require.Error(t, err)
	assert.ErrorIs(t, err, stellar.ErrInvalidAddress)

	_, err = c.AccountExists(context.Background(), "GABC")
	assert.ErrorIs(t, err, stellar.ErrInvalidAddress)
	assert.Equal(t, int32(0), hits.Load())
}

func TestGetAccountNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"type":"https://stellar.org/horizon-errors/not_found","title":"Resource Missing","status":404}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetAccount(context.Background(), testAccount)
	assert.ErrorIs(t, err, stellar.ErrAccountNotFound)
	assert.Equal(t, int32(1), hits.Load())

	exists, err := c.AccountExists(context.Background(), testAccount)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetAccountRetriesServerErrors(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		wantErr   error
		wantCalls int32
	}{
		{"recovers after two failures", 2, nil, 3},
		{"gives up after budget", 10, stellar.ErrNetwork, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) <= tt.failures {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				_, _ = io.WriteString(w, accountJSON("7"))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).GetAccount(context.Background(), testAccount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, hits.Load())
		})
	}
}

func TestGetAccountTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetAccount(context.Background(), testAccount)
	assert.ErrorIs(t, err, stellar.ErrTimeout)
	assert.Equal(t, int32(c.Profile().MaxRetries+1), hits.Load())
}

func TestGetAccountTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetAccount(context.Background(), testAccount)
	assert.ErrorIs(t, err, stellar.ErrNetwork)
}

func TestGetAccountMalformedSequence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, accountJSON("not-a-number"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetAccount(context.Background(), testAccount)
	assert.ErrorIs(t, err, stellar.ErrNetwork)
}

func TestGetCustomAssetBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, accountJSON("1",
			map[string]any{"asset_type": "native", "balance": "3.0000000"},
			map[string]any{"asset_type": "credit_alphanum4", "asset_code": "AFRI", "asset_issuer": testIssuer, "balance": "9.1000000", "is_authorized": true},
		))
	}))
	defer srv.Close()

	bal, ok, err := newTestClient(t, srv).GetCustomAssetBalance(context.Background(), testAccount)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "9.1000000", bal)

	_, ok, err = newTestClient(t, srv, WithCustomAsset("USDC", "")).GetCustomAssetBalance(context.Background(), testAccount)
	require.NoError(t, err)
	assert.False(t, ok)

	balances, err := newTestClient(t, srv).GetBalances(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Len(t, balances, 2)
}

func TestHealthCheckSingleAttemptOnFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if conn, _, err := hj.Hijack(); err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	status := newTestClient(t, srv).HealthCheck(context.Background())
	assert.False(t, status.IsHealthy)
	assert.NotEmpty(t, status.ErrorMessage)
	assert.Equal(t, int32(1), hits.Load())
}

func TestHealthCheckHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"horizon_version":"2.30.0","network_passphrase":%q}`, stellar.Testnet.Passphrase())
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	status := newTestClient(t, srv, WithMetrics(m)).HealthCheck(context.Background())
	assert.True(t, status.IsHealthy)
	assert.Empty(t, status.ErrorMessage)
	assert.Equal(t, srv.URL, status.GatewayURL)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.up))
}

func TestHealthCheckPassphraseMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"network_passphrase":%q}`, stellar.Mainnet.Passphrase())
	}))
	defer srv.Close()

	status := newTestClient(t, srv).HealthCheck(context.Background())
	assert.False(t, status.IsHealthy)
	assert.Contains(t, status.ErrorMessage, "expected")
}

func TestSubmitTransaction(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "AAAAenvelope==", r.PostForm.Get("tx"))
		_, _ = io.WriteString(w, `{"hash":"abc123","ledger":99,"successful":true,"envelope_xdr":"AAAAenvelope==","result_xdr":"AAAA"}`)
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv).SubmitTransaction(context.Background(), "AAAAenvelope==")
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.Hash)
	assert.Equal(t, int32(99), res.Ledger)
	assert.True(t, res.Successful)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSubmitTransactionRejected(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"https://stellar.org/horizon-errors/transaction_failed","title":"Transaction Failed","status":400,
			"extras":{"result_codes":{"transaction":"tx_failed","operations":["op_no_trust"]},"result_xdr":"AAAAAAAAAGT/////AAAAAQ=="}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).SubmitTransaction(context.Background(), "AAAA")
	require.Error(t, err)
	assert.ErrorIs(t, err, stellar.ErrSubmissionRejected)

	var se *stellar.Error
	require.ErrorAs(t, err, &se)
	require.NotNil(t, se.Rejection)
	assert.Equal(t, "tx_failed", se.Rejection.TransactionCode)
	assert.Equal(t, []string{"op_no_trust"}, se.Rejection.OperationCodes)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSubmitTransactionServerErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).SubmitTransaction(context.Background(), "AAAA")
	assert.ErrorIs(t, err, stellar.ErrNetwork)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCanceledContextStopsRetries(t *testing.T) {
	var hits atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		cancel()
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetAccount(ctx, testAccount)
	require.Error(t, err)
	assert.NotEqual(t, stellar.KindUnknown, stellar.KindOf(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestNewClientRejectsInvalidProfile(t *testing.T) {
	profile := stellar.DefaultProfile()
	profile.MaxRetries = 0
	_, err := NewClient(profile)
	assert.ErrorIs(t, err, stellar.ErrValidation)
}
