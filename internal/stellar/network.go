// Package stellar holds the network profile, validators and error taxonomy
// shared by the ledger client, trustline manager and payment builder.
package stellar

import (
	"fmt"
	"strings"
	"time"

	"github.com/stellar/go/network"
)

// Network identifies the Stellar network the service talks to.
type Network string

const (
	Testnet Network = "testnet"
	Mainnet Network = "mainnet"
)

const (
	testnetHorizonURL = "https://horizon-testnet.stellar.org"
	mainnetHorizonURL = "https://horizon.stellar.org"

	DefaultRequestTimeout      = 15 * time.Second
	DefaultMaxRetries          = 3
	DefaultHealthCheckInterval = 30 * time.Second
)

// ParseNetwork maps a configuration string onto a Network.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "testnet", "test":
		return Testnet, nil
	case "mainnet", "public", "pubnet":
		return Mainnet, nil
	default:
		return "", Validation("parse network", "unknown network %q", s)
	}
}

// HorizonURL returns the public gateway endpoint for the network.
func (n Network) HorizonURL() string {
	if n == Mainnet {
		return mainnetHorizonURL
	}
	return testnetHorizonURL
}

// Passphrase returns the network passphrase transactions are signed against.
func (n Network) Passphrase() string {
	if n == Mainnet {
		return network.PublicNetworkPassphrase
	}
	return network.TestNetworkPassphrase
}

// NetworkProfile is the immutable connection profile shared by all components.
type NetworkProfile struct {
	Network             Network
	GatewayURL          string
	Passphrase          string
	RequestTimeout      time.Duration
	MaxRetries          int
	HealthCheckInterval time.Duration
}

// DefaultProfile returns the testnet profile with default timings.
func DefaultProfile() NetworkProfile {
	p, _ := NewProfile(Testnet, DefaultRequestTimeout, DefaultMaxRetries, DefaultHealthCheckInterval)
	return p
}

// NewProfile derives gateway URL and passphrase from the network and checks
// the timing parameters.
func NewProfile(n Network, timeout time.Duration, maxRetries int, healthInterval time.Duration) (NetworkProfile, error) {
	p := NetworkProfile{
		Network:             n,
		GatewayURL:          n.HorizonURL(),
		Passphrase:          n.Passphrase(),
		RequestTimeout:      timeout,
		MaxRetries:          maxRetries,
		HealthCheckInterval: healthInterval,
	}
	if err := p.Validate(); err != nil {
		return NetworkProfile{}, err
	}
	return p, nil
}

// Validate rejects unknown networks and non-positive timings.
func (p NetworkProfile) Validate() error {
	const op = "network profile"
	switch p.Network {
	case Testnet, Mainnet:
	default:
		return Validation(op, "unknown network %q", string(p.Network))
	}
	if p.GatewayURL == "" {
		return Validation(op, "gateway url is required")
	}
	if p.Passphrase == "" {
		return Validation(op, "passphrase is required")
	}
	if p.RequestTimeout <= 0 {
		return Validation(op, "request timeout must be positive")
	}
	if p.MaxRetries <= 0 {
		return Validation(op, "max retries must be positive")
	}
	if p.HealthCheckInterval <= 0 {
		return Validation(op, "health check interval must be positive")
	}
	return nil
}

func (p NetworkProfile) String() string {
	return fmt.Sprintf("%s (%s)", p.Network, p.GatewayURL)
}
