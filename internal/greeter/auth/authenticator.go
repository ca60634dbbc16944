package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	MaxUsernameLength = 32
	MaxPasswordLength = 128

	// DefaultSession is the desktop session started after a successful login.
	DefaultSession = "ubuntu"
)

// ErrBusy is returned by Login while another attempt is in progress or done.
var ErrBusy = errors.New("authentication already in progress")

// ErrEmptyCredentials is returned by Login when username or password is empty.
var ErrEmptyCredentials = errors.New("username or password is empty")

// Options configures an Authenticator.
type Options struct {
	Session string
	Logger  *zap.Logger
	// Debug receives diagnostics destined for the on-screen debug bar.
	Debug func(string)
}

// Authenticator runs one login at a time against a Provider and forwards
// the outcome to the single connected Events subscriber.
type Authenticator struct {
	provider Provider
	session  string
	logger   *zap.Logger
	debug    func(string)

	mu             sync.Mutex
	authenticating bool
	authenticated  bool
	username       string
	password       string
	events         Events
	waiters        []chan bool
	// settled holds the outcome of the last finished attempt in lastOK.
	settled bool
	lastOK  bool
}

// New constructs an Authenticator. Call Run to start consuming provider signals.
func New(provider Provider, opts Options) *Authenticator {
	if opts.Session == "" {
		opts.Session = DefaultSession
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Debug == nil {
		opts.Debug = func(string) {}
	}
	return &Authenticator{
		provider: provider,
		session:  opts.Session,
		logger:   opts.Logger,
		debug:    opts.Debug,
	}
}

// SetEvents connects handler, replacing any previous subscriber. nil disconnects.
func (a *Authenticator) SetEvents(handler Events) {
	a.mu.Lock()
	a.events = handler
	a.mu.Unlock()
}

// Subscriber returns the connected Events, or nil.
func (a *Authenticator) Subscriber() Events {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events
}

// Authenticating reports whether a login attempt is in flight.
func (a *Authenticator) Authenticating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticating
}

// Authenticated reports whether the last attempt succeeded.
func (a *Authenticator) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

// Username returns the login currently being authenticated.
func (a *Authenticator) Username() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.username
}

// Login starts an authentication attempt. The username is truncated to
// MaxUsernameLength and trimmed; the password is truncated but never trimmed.
func (a *Authenticator) Login(ctx context.Context, username, password string) error {
	a.mu.Lock()
	if a.authenticating || a.authenticated {
		a.mu.Unlock()
		a.debug("login() was called while already authenticating or authenticated")
		return ErrBusy
	}
	user := strings.TrimSpace(truncate(username, MaxUsernameLength))
	pass := truncate(password, MaxPasswordLength)
	if user == "" || pass == "" {
		a.mu.Unlock()
		a.debug("login() was called while username or password is empty")
		return ErrEmptyCredentials
	}
	a.username = user
	a.password = pass
	a.authenticating = true
	a.settled = false
	events := a.events
	a.mu.Unlock()

	if events != nil {
		events.AuthenticationStart()
	}

	a.logger.Info("starting authentication", zap.String("username", user))
	_ = a.provider.Cancel(ctx)
	if err := a.provider.Authenticate(ctx, user); err != nil {
		a.fail(fmt.Errorf("authenticate: %w", err))
		return err
	}
	return nil
}

// Wait returns whether the current attempt succeeded, blocking until it
// finishes. With no attempt in flight it reports the last finished attempt,
// or blocks for the next one if there has been none.
func (a *Authenticator) Wait(ctx context.Context) (bool, error) {
	ch := make(chan bool, 1)
	a.mu.Lock()
	if a.settled && !a.authenticating {
		ok := a.lastOK
		a.mu.Unlock()
		return ok, nil
	}
	a.waiters = append(a.waiters, ch)
	a.mu.Unlock()

	select {
	case ok := <-ch:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Run dispatches provider signals until ctx is done or the signal channel closes.
func (a *Authenticator) Run(ctx context.Context) error {
	signals := a.provider.Signals()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			a.handle(ctx, sig)
		}
	}
}

func (a *Authenticator) handle(ctx context.Context, sig Signal) {
	switch sig.Kind {
	case SignalPrompt:
		a.handlePrompt(ctx, sig)
	case SignalMessage:
		a.handleMessage(sig)
	case SignalCompleted:
		a.handleCompleted(ctx, sig.Success)
	}
}

func (a *Authenticator) handlePrompt(ctx context.Context, sig Signal) {
	a.mu.Lock()
	user, pass := a.username, a.password
	a.mu.Unlock()

	var answer string
	switch sig.Prompt {
	case PromptQuestion:
		a.logger.Debug("provider requested username, responding")
		answer = user
	case PromptSecret:
		a.logger.Debug("provider requested password, responding")
		answer = pass
	default:
		a.debug(fmt.Sprintf("Unknown prompt type: %d", sig.Prompt))
		return
	}
	if err := a.provider.Respond(ctx, answer); err != nil {
		a.fail(fmt.Errorf("respond: %w", err))
	}
}

func (a *Authenticator) handleMessage(sig Signal) {
	events := a.Subscriber()
	switch sig.Message {
	case MessageInfo:
		a.logger.Info("provider info message", zap.String("message", sig.Text))
		if events != nil {
			events.InfoMessage(sig.Text)
		}
	case MessageError:
		a.debug("Provider error message: " + sig.Text)
		if events != nil {
			events.ErrorMessage(sig.Text)
		}
	default:
		a.debug(fmt.Sprintf("Unknown message type: %d, message: %s", sig.Message, sig.Text))
	}
}

func (a *Authenticator) handleCompleted(ctx context.Context, success bool) {
	if !success {
		a.logger.Info("authentication failed, user not found or password incorrect")
		a.stop(ctx)
		if events := a.Subscriber(); events != nil {
			events.AuthenticationFailure()
		}
		a.resolve(false)
		return
	}

	a.mu.Lock()
	a.authenticated = true
	a.authenticating = false
	session := a.session
	events := a.events
	a.mu.Unlock()

	a.logger.Info("authentication successful")
	start := true
	if events != nil {
		start = events.AuthenticationComplete(ctx)
	}
	if !start {
		a.stop(ctx)
		a.resolve(true)
		return
	}
	if err := a.provider.StartSession(ctx, session); err != nil {
		a.stop(ctx)
		a.fail(fmt.Errorf("start session: %w", err))
		return
	}
	a.resolve(true)
}

// stop cancels the provider exchange and forgets the credentials.
func (a *Authenticator) stop(ctx context.Context) {
	_ = a.provider.Cancel(ctx)
	a.mu.Lock()
	a.authenticating = false
	a.authenticated = false
	a.username = ""
	a.password = ""
	a.mu.Unlock()
}

// fail resets the in-flight flag before surfacing err so the form never stays
// locked, then releases waiters with false.
func (a *Authenticator) fail(err error) {
	a.mu.Lock()
	a.authenticating = false
	events := a.events
	a.mu.Unlock()

	a.logger.Warn("authentication error", zap.Error(err))
	a.debug(err.Error())
	if events != nil {
		events.ErrorMessage(err.Error())
	}
	a.resolve(false)
}

func (a *Authenticator) resolve(ok bool) {
	a.mu.Lock()
	a.settled = true
	a.lastOK = ok
	waiters := a.waiters
	a.waiters = nil
	a.mu.Unlock()
	for _, ch := range waiters {
		ch <- ok
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max])
	}
	return s
}
