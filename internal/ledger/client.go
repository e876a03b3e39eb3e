package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/aframp/aframp_backend/internal/logging"
	"github.com/aframp/aframp_backend/internal/stellar"
)

const maxResponseBytes = 4 << 20

// Client is a Horizon REST client. It holds no mutable state after
// construction and is safe for concurrent use.
type Client struct {
	profile     stellar.NetworkProfile
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	limiter     *rate.Limiter
	metrics     *Metrics
	newBackOff  func() backoff.BackOff
	assetCode   string
	assetIssuer string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at a different gateway, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRateLimiter throttles outbound requests. Horizon enforces per-IP limits.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithMetrics records request metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBackOff sets the delay policy between read retries. The attempt budget
// always comes from the network profile.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) {
		if f != nil {
			c.newBackOff = f
		}
	}
}

// WithCustomAsset selects the asset reported by GetCustomAssetBalance. An
// empty issuer matches any issuer.
func WithCustomAsset(code, issuer string) Option {
	return func(c *Client) {
		c.assetCode = code
		c.assetIssuer = issuer
	}
}

// NewClient validates the profile and builds a client for its gateway.
func NewClient(profile stellar.NetworkProfile, opts ...Option) (*Client, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		profile:    profile,
		baseURL:    strings.TrimRight(profile.GatewayURL, "/"),
		httpClient: &http.Client{},
		logger:     logging.Discard(),
		newBackOff: defaultBackOff,
		assetCode:  DefaultCustomAssetCode,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := stellar.ValidateAssetCode("ledger client", c.assetCode); err != nil {
		return nil, err
	}
	return c, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Profile returns the network profile the client was built with.
func (c *Client) Profile() stellar.NetworkProfile { return c.profile }

// GetAccount loads an account. Malformed ids fail before any request.
func (c *Client) GetAccount(ctx context.Context, accountID string) (Account, error) {
	const op = "get account"
	if err := stellar.ValidateAccountID(op, accountID); err != nil {
		return Account{}, err
	}

	var wire horizonAccount
	err := c.getWithRetry(ctx, op, "/accounts/"+url.PathEscape(accountID), &wire, func() error {
		return stellar.AccountNotFound(op, accountID)
	})
	if err != nil {
		return Account{}, err
	}

	acc, err := wire.toDomain()
	if err != nil {
		return Account{}, &stellar.Error{Kind: stellar.KindNetwork, Op: op, Detail: "malformed account response", Err: err}
	}
	return acc, nil
}

// AccountExists reports whether the account is funded on the ledger.
func (c *Client) AccountExists(ctx context.Context, accountID string) (bool, error) {
	_, err := c.GetAccount(ctx, accountID)
	if errors.Is(err, stellar.ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetBalances returns every asset balance of the account.
func (c *Client) GetBalances(ctx context.Context, accountID string) ([]AssetBalance, error) {
	acc, err := c.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return acc.Balances, nil
}

// GetCustomAssetBalance returns the balance of the application asset. ok is
// false when the account has no trustline to it.
func (c *Client) GetCustomAssetBalance(ctx context.Context, accountID string) (string, bool, error) {
	acc, err := c.GetAccount(ctx, accountID)
	if err != nil {
		return "", false, err
	}
	b, ok := acc.FindBalance(c.assetCode, c.assetIssuer)
	if !ok {
		return "", false, nil
	}
	return b.Balance, true, nil
}

// HealthCheck probes the gateway root exactly once. Failures are reported in
// the returned status, never as an error.
func (c *Client) HealthCheck(ctx context.Context) HealthStatus {
	const op = "health check"
	start := time.Now()
	status := HealthStatus{GatewayURL: c.baseURL}

	code, body, err := c.roundTrip(ctx, op, http.MethodGet, "/", nil, "")
	elapsed := time.Since(start)
	status.ResponseTimeMS = elapsed.Milliseconds()
	status.CheckedAt = time.Now().UTC()

	switch {
	case err != nil:
		status.ErrorMessage = err.Error()
	case code != http.StatusOK:
		status.ErrorMessage = fmt.Sprintf("gateway returned status %d", code)
	default:
		var root horizonRoot
		if json.Unmarshal(body, &root) == nil && root.NetworkPassphrase != "" && root.NetworkPassphrase != c.profile.Passphrase {
			status.ErrorMessage = fmt.Sprintf("gateway serves %q, expected %q", root.NetworkPassphrase, c.profile.Passphrase)
			break
		}
		status.IsHealthy = true
	}

	c.metrics.health(status.IsHealthy)
	if !status.IsHealthy {
		c.logger.Warn("horizon unhealthy", "url", c.baseURL, "error", status.ErrorMessage, "elapsed", elapsed)
	}
	return status
}

// SubmitTransaction posts a signed base64 envelope once. It is never retried:
// a resend without re-reading the sequence number risks double submission.
func (c *Client) SubmitTransaction(ctx context.Context, envelopeXDR string) (SubmitResponse, error) {
	const op = "submit transaction"
	if strings.TrimSpace(envelopeXDR) == "" {
		return SubmitResponse{}, stellar.Validation(op, "envelope is empty")
	}

	form := url.Values{"tx": {envelopeXDR}}
	code, body, err := c.roundTrip(ctx, op, http.MethodPost, "/transactions", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return SubmitResponse{}, err
	}

	switch {
	case code == http.StatusOK:
		var res horizonSubmitResult
		if err := json.Unmarshal(body, &res); err != nil {
			return SubmitResponse{}, &stellar.Error{Kind: stellar.KindNetwork, Op: op, Status: code, Detail: "malformed submit response", Err: err}
		}
		out := res.toDomain()
		c.logger.Info("transaction submitted", "hash", out.Hash, "ledger", out.Ledger)
		return out, nil
	case code == http.StatusGatewayTimeout:
		// Horizon gave up waiting for consensus; the outcome is unknown.
		return SubmitResponse{}, &stellar.Error{Kind: stellar.KindTimeout, Op: op, Status: code, Detail: "gateway timed out waiting for ledger close"}
	case code >= 400 && code < 500:
		rej := decodeRejection(code, body)
		c.logger.Warn("transaction rejected", "status", code, "tx_code", rej.TransactionCode, "op_codes", rej.OperationCodes)
		return SubmitResponse{}, stellar.Rejected(op, rej)
	default:
		return SubmitResponse{}, stellar.NetworkErr(op, code, fmt.Errorf("unexpected status %d", code))
	}
}

func decodeRejection(code int, body []byte) stellar.Rejection {
	rej := stellar.Rejection{Status: code, Title: http.StatusText(code)}
	var p horizonProblem
	if err := json.Unmarshal(body, &p); err != nil {
		return rej
	}
	if p.Title != "" {
		rej.Title = p.Title
	}
	rej.Detail = p.Detail
	rej.TransactionCode = p.Extras.ResultCodes.Transaction
	rej.OperationCodes = p.Extras.ResultCodes.Operations
	rej.ResultXDR = p.Extras.ResultXDR
	return rej
}

// getWithRetry GETs path into out. Transport failures, timeouts, 429 and 5xx
// are retried up to MaxRetries times; everything else stops immediately.
func (c *Client) getWithRetry(ctx context.Context, op, path string, out any, notFound func() error) error {
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			c.metrics.retried(op)
		}

		code, body, err := c.roundTrip(ctx, op, http.MethodGet, path, nil, "")
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		switch {
		case code == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return backoff.Permanent(&stellar.Error{Kind: stellar.KindNetwork, Op: op, Status: code, Detail: "decode response", Err: err})
			}
			return nil
		case code == http.StatusNotFound && notFound != nil:
			return backoff.Permanent(notFound())
		case code == http.StatusTooManyRequests || code >= 500:
			return stellar.NetworkErr(op, code, fmt.Errorf("gateway returned status %d", code))
		default:
			return backoff.Permanent(stellar.NetworkErr(op, code, fmt.Errorf("gateway returned status %d: %s", code, problemTitle(body))))
		}
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("horizon request failed, retrying", "op", op, "attempt", attempt, "wait", wait, "error", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.profile.MaxRetries)), ctx)
	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return nil
	}
	if stellar.KindOf(err) == stellar.KindUnknown {
		return classifyTransport(ctx, op, err)
	}
	return err
}

// roundTrip performs one request bounded by the profile's request timeout.
// A non-nil error is always a *stellar.Error of kind Network or Timeout.
func (c *Client) roundTrip(ctx context.Context, op, method, path string, body io.Reader, contentType string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, classifyTransport(ctx, op, err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.profile.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, stellar.NetworkErr(op, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(op, "transport_error", time.Since(start))
		c.logger.Debug("horizon request failed", "op", op, "method", method, "path", path, "error", err)
		return 0, nil, classifyTransport(attemptCtx, op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.observe(op, "transport_error", time.Since(start))
		return 0, nil, classifyTransport(attemptCtx, op, err)
	}

	c.metrics.observe(op, outcomeLabel(resp.StatusCode), time.Since(start))
	c.logger.Debug("horizon request completed", "op", op, "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp.StatusCode, payload, nil
}

func classifyTransport(ctx context.Context, op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return stellar.Timeout(op, err)
	}
	return stellar.NetworkErr(op, 0, err)
}

func outcomeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "ok"
	}
}

func problemTitle(body []byte) string {
	var p horizonProblem
	if err := json.Unmarshal(body, &p); err != nil || p.Title == "" {
		return "unexpected response"
	}
	return p.Title
}
