package core

import "github.com/google/uuid"

// sessionRegistry maps opaque bearer tokens to account ids. Tokens are
// minted on first sight and live for the process lifetime. Access is
// guarded by the trading session's lock.
type sessionRegistry struct {
	accounts map[string]string // token -> account id
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{accounts: make(map[string]string)}
}

func (r *sessionRegistry) lookup(token string) (string, bool) {
	id, ok := r.accounts[token]
	return id, ok
}

// create mints a fresh token and account id pair.
func (r *sessionRegistry) create() (token, accountID string) {
	token = uuid.NewString()
	accountID = uuid.NewString()
	r.accounts[token] = accountID
	return token, accountID
}

// ResolveResult is the outcome of a session lookup. Created is true when a
// new session (and account) was minted; the transport persists the token
// with the client.
type ResolveResult struct {
	SessionID string
	AccountID string
	Created   bool
}
