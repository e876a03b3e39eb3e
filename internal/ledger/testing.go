package ledger

// SeedAccount is a test helper that stores an account in the in-memory gateway.
func SeedAccount(g Gateway, acc Account) {
	if mem, ok := g.(*inMemoryGateway); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if acc.Data == nil {
			acc.Data = map[string]string{}
		}
		mem.accounts[acc.AccountID] = acc
	}
}

// SetHealthy flips the result of the in-memory health probe.
func SetHealthy(g Gateway, healthy bool) {
	if mem, ok := g.(*inMemoryGateway); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.healthy = healthy
	}
}

// FailSubmissions makes every following in-memory submission return err.
func FailSubmissions(g Gateway, err error) {
	if mem, ok := g.(*inMemoryGateway); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.submitErr = err
	}
}

// Calls returns how many times op reached the in-memory gateway.
func Calls(g Gateway, op string) int {
	if mem, ok := g.(*inMemoryGateway); ok {
		mem.mu.RLock()
		defer mem.mu.RUnlock()
		return mem.calls[op]
	}
	return 0
}

// Submitted returns the envelopes accepted by the in-memory gateway.
func Submitted(g Gateway) []string {
	if mem, ok := g.(*inMemoryGateway); ok {
		mem.mu.RLock()
		defer mem.mu.RUnlock()
		return append([]string(nil), mem.submitted...)
	}
	return nil
}
