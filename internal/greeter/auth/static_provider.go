package auth

import (
	"context"
	"errors"
	"sync"
)

// StaticProvider checks credentials against a fixed table. It stands in for
// the display manager when the client runs headless or under test.
type StaticProvider struct {
	mu       sync.Mutex
	accounts map[string]string
	signals  chan Signal
	username string
	sessions []string
}

// NewStaticProvider returns a provider accepting the given username/password pairs.
func NewStaticProvider(accounts map[string]string) *StaticProvider {
	copied := make(map[string]string, len(accounts))
	for k, v := range accounts {
		copied[k] = v
	}
	return &StaticProvider{accounts: copied, signals: make(chan Signal, 8)}
}

// Authenticate begins an exchange for username by asking for its secret.
func (p *StaticProvider) Authenticate(_ context.Context, username string) error {
	p.mu.Lock()
	p.username = username
	p.mu.Unlock()
	p.signals <- PromptRequested(PromptSecret, "Password: ")
	return nil
}

// Respond checks the secret for the pending username.
func (p *StaticProvider) Respond(_ context.Context, response string) error {
	p.mu.Lock()
	user := p.username
	want, ok := p.accounts[user]
	p.mu.Unlock()
	if user == "" {
		return errors.New("no authentication in progress")
	}
	p.signals <- Completed(ok && want == response)
	return nil
}

// Cancel aborts the pending exchange.
func (p *StaticProvider) Cancel(context.Context) error {
	p.mu.Lock()
	p.username = ""
	p.mu.Unlock()
	return nil
}

// StartSession records the started session.
func (p *StaticProvider) StartSession(_ context.Context, session string) error {
	p.mu.Lock()
	p.sessions = append(p.sessions, session)
	p.mu.Unlock()
	return nil
}

// Sessions lists the sessions started so far.
func (p *StaticProvider) Sessions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.sessions...)
}

// Signals returns the event stream.
func (p *StaticProvider) Signals() <-chan Signal {
	return p.signals
}
