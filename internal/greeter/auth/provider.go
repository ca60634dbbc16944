// Package auth drives a display-manager authentication provider on behalf
// of the greeter screens.
package auth

import "context"

// PromptType is the kind of input the provider asks for.
type PromptType int

const (
	PromptQuestion PromptType = iota
	PromptSecret
)

// MessageType classifies provider messages.
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageError
)

// SignalKind identifies what a provider Signal carries.
type SignalKind int

const (
	SignalPrompt SignalKind = iota
	SignalMessage
	SignalCompleted
)

// Signal is one event emitted by a Provider.
type Signal struct {
	Kind    SignalKind
	Prompt  PromptType
	Message MessageType
	Text    string
	Success bool
}

// PromptRequested builds a prompt signal.
func PromptRequested(kind PromptType, text string) Signal {
	return Signal{Kind: SignalPrompt, Prompt: kind, Text: text}
}

// MessageReceived builds a message signal.
func MessageReceived(kind MessageType, text string) Signal {
	return Signal{Kind: SignalMessage, Message: kind, Text: text}
}

// Completed builds a completion signal.
func Completed(success bool) Signal {
	return Signal{Kind: SignalCompleted, Success: success}
}

// Provider is the display manager's credential exchange. Signals are
// delivered on the channel returned by Signals at arbitrary times after
// Authenticate.
type Provider interface {
	Authenticate(ctx context.Context, username string) error
	Respond(ctx context.Context, response string) error
	Cancel(ctx context.Context) error
	StartSession(ctx context.Context, session string) error
	Signals() <-chan Signal
}

// Events is implemented by the screen currently connected to the Authenticator.
type Events interface {
	// AuthenticationStart is called when a login attempt begins.
	AuthenticationStart()
	// AuthenticationComplete is called after the provider accepted the
	// credentials. The session is started only when it returns true.
	AuthenticationComplete(ctx context.Context) bool
	// AuthenticationFailure reports wrong credentials.
	AuthenticationFailure()
	// ErrorMessage reports provider errors and internal failures.
	ErrorMessage(message string)
	InfoMessage(message string)
}
