package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/stellar"
)

const (
	account = "GCJRI5CIWK5IU67Q6DGA7QW52JDKRO7JEAHQKFNDUJUPEZGURDBX3LDX"
	issuer  = "GBUQWP3BOUZX34TOND2QV7QQ7K7VJTG6VSE7WMLBTMDJLLAW7YKGU6EP"
)

func newTestRoot(t *testing.T) (*bytes.Buffer, ledger.Gateway, func(args ...string) error) {
	t.Helper()
	g := ledger.NewInMemory()
	ledger.SeedAccount(g, ledger.Account{
		AccountID: account,
		Sequence:  41,
		Balances:  []ledger.AssetBalance{{AssetType: ledger.AssetTypeNative, Balance: "10.0000000", IsAuthorized: true}},
	})
	factory := func(stellar.NetworkProfile, options, *slog.Logger) (ledger.Gateway, error) { return g, nil }

	var out bytes.Buffer
	run := func(args ...string) error {
		out.Reset()
		root := newRootCmd(&out, factory)
		root.SetArgs(args)
		return root.ExecuteContext(context.Background())
	}
	return &out, g, run
}

func TestHealthCommand(t *testing.T) {
	out, g, run := newTestRoot(t)

	require.NoError(t, run("health"))
	var status ledger.HealthStatus
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.True(t, status.IsHealthy)

	ledger.SetHealthy(g, false)
	assert.Error(t, run("health"))
}

func TestAccountCommands(t *testing.T) {
	out, _, run := newTestRoot(t)

	require.NoError(t, run("balances", account))
	assert.Contains(t, out.String(), "10.0000000")

	err := run("account", "GBAD")
	assert.ErrorIs(t, err, stellar.ErrInvalidAddress)
}

func TestTrustlineCreateCommand(t *testing.T) {
	out, _, run := newTestRoot(t)

	require.NoError(t, run("trustline", "create", account, "--asset-issuer", issuer))
	var tx struct {
		SequenceNumber int64  `json:"sequence_number"`
		EnvelopeXDR    string `json:"envelope_xdr"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &tx))
	assert.Equal(t, int64(42), tx.SequenceNumber)
	assert.NotEmpty(t, tx.EnvelopeXDR)
}

func TestRejectsUnknownNetwork(t *testing.T) {
	_, _, run := newTestRoot(t)
	assert.Error(t, run("health", "--network", "moonnet"))
}

func TestSubmitRequiresSeed(t *testing.T) {
	t.Setenv(seedEnv, "")
	_, _, run := newTestRoot(t)
	assert.Error(t, run("trustline", "submit", "AAAA"))
}
