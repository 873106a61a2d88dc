package aws

import (
	"fmt"
	"time"
)

// AuthError reports a failure anywhere in the login or refresh path:
// missing provider response fields, absent config properties, user
// cancellation and polling timeout all surface as this type.
type AuthError struct {
	Msg string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func authErrf(format string, args ...any) *AuthError {
	return &AuthError{Msg: fmt.Sprintf(format, args...)}
}

// ClientRegistration is the public OIDC client issued by RegisterClient.
// Its expiration is independent of any token minted through it.
type ClientRegistration struct {
	ClientID     string
	ClientSecret string
	ExpiresAt    time.Time
}

// DeviceAuthorization is the server's answer to a device-code request:
// where the user must go, what code to exchange, and how fast to poll.
type DeviceAuthorization struct {
	VerificationURIComplete string
	UserCode                string
	DeviceCode              string
	Interval                int32
	ExpiresIn               int32
}

// Token is an SSO access token minted by the device flow. It is never
// mutated; a new login produces a new value that overwrites the cached one.
type Token struct {
	AccessToken  string
	RefreshToken string // empty when the provider issued none
	Expiration   time.Time
}

// Presenter is the opaque surface that shows the verification URI to the
// user while the flow polls. The concrete mechanism (browser, webview) is
// an external collaborator.
type Presenter interface {
	Present(url string) error
	Close()
}

// CancelToken is a one-shot cooperative cancellation signal with
// check-and-clear semantics. The polling loop checks it once per
// iteration; sending more than once is harmless.
type CancelToken struct {
	ch chan struct{}
}

// NewCancelToken returns an unsignalled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{ch: make(chan struct{}, 1)}
}

// Cancel signals the token. Non-blocking; extra signals are dropped.
func (t *CancelToken) Cancel() {
	select {
	case t.ch <- struct{}{}:
	default:
	}
}

// requested consumes a pending signal if there is one.
func (t *CancelToken) requested() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}
