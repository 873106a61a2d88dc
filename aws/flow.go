package aws

import (
	"context"
	"errors"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	clientName = "aws-awth-butler"
	clientType = "public"
	oidcScope  = "sso:account:access"
	grantType  = "urn:ietf:params:oauth:grant-type:device_code"

	// Total wall-clock ceiling for polling, regardless of the validity
	// window the server reports. Deliberately conservative.
	pollCeiling = 60
)

// FlowState tracks where the device-authorization flow is.
type FlowState int

const (
	StateUnregistered FlowState = iota
	StateClientRegistered
	StateDeviceCodeIssued
	StatePolling
	StateTokenIssued
	StateUserCancelled
	StateTimeout
)

func (s FlowState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateClientRegistered:
		return "client-registered"
	case StateDeviceCodeIssued:
		return "device-code-issued"
	case StatePolling:
		return "polling"
	case StateTokenIssued:
		return "token-issued"
	case StateUserCancelled:
		return "user-cancelled"
	case StateTimeout:
		return "timeout"
	}
	return "unknown"
}

// Register creates a public OIDC client against the provider's
// token-exchange endpoint. The registration expires on its own schedule,
// separate from any token minted through it.
func (c *Client) Register(ctx context.Context) (*ClientRegistration, error) {
	out, err := c.oidc.RegisterClient(ctx, &ssooidc.RegisterClientInput{
		ClientName: awssdk.String(clientName),
		ClientType: awssdk.String(clientType),
		Scopes:     []string{oidcScope},
	})
	if err != nil {
		return nil, &AuthError{Msg: "failed to register OIDC client", Err: err}
	}
	if out.ClientId == nil {
		return nil, authErrf("client ID missing from registration")
	}
	if out.ClientSecret == nil {
		return nil, authErrf("client secret missing from registration")
	}

	reg := &ClientRegistration{
		ClientID:     *out.ClientId,
		ClientSecret: *out.ClientSecret,
		ExpiresAt:    time.Unix(out.ClientSecretExpiresAt, 0).UTC(),
	}
	c.log.Debug("registered OIDC client", zap.String("state", StateClientRegistered.String()),
		zap.Time("registrationExpiresAt", reg.ExpiresAt))
	return reg, nil
}

// Authorize requests a device authorization for the given start URL.
func (c *Client) Authorize(ctx context.Context, reg *ClientRegistration, startURL string) (*DeviceAuthorization, error) {
	out, err := c.oidc.StartDeviceAuthorization(ctx, &ssooidc.StartDeviceAuthorizationInput{
		ClientId:     awssdk.String(reg.ClientID),
		ClientSecret: awssdk.String(reg.ClientSecret),
		StartUrl:     awssdk.String(startURL),
	})
	if err != nil {
		return nil, &AuthError{Msg: "failed to start device authorization", Err: err}
	}
	if out.VerificationUriComplete == nil {
		return nil, authErrf("no verification URI after client registration")
	}
	if out.DeviceCode == nil {
		return nil, authErrf("device code missing from authorization")
	}

	auth := &DeviceAuthorization{
		VerificationURIComplete: *out.VerificationUriComplete,
		UserCode:                awssdk.ToString(out.UserCode),
		DeviceCode:              *out.DeviceCode,
		Interval:                out.Interval,
		ExpiresIn:               out.ExpiresIn,
	}
	c.log.Debug("device authorization issued", zap.String("state", StateDeviceCodeIssued.String()),
		zap.Int32("interval", auth.Interval))
	return auth, nil
}

// AwaitToken polls the token endpoint until the user finishes the browser
// step, the cancel token fires, or the iteration budget runs out. The
// budget is pollCeiling/interval attempts; the cancel token is checked
// once per iteration so a cancellation is observed at most one interval
// late.
func (c *Client) AwaitToken(ctx context.Context, reg *ClientRegistration, auth *DeviceAuthorization, cancel *CancelToken) (*Token, error) {
	interval := auth.Interval
	if interval <= 0 {
		interval = 5
	}

	attempts := pollCeiling / int(interval)
	for i := 0; i < attempts; i++ {
		if cancel.requested() {
			c.log.Info("login cancelled by user", zap.String("state", StateUserCancelled.String()))
			return nil, authErrf("user closed window before authenticating")
		}

		out, err := c.oidc.CreateToken(ctx, &ssooidc.CreateTokenInput{
			ClientId:     awssdk.String(reg.ClientID),
			ClientSecret: awssdk.String(reg.ClientSecret),
			DeviceCode:   awssdk.String(auth.DeviceCode),
			GrantType:    awssdk.String(grantType),
		})
		if err == nil {
			if out.AccessToken == nil {
				return nil, authErrf("access token missing from completed auth")
			}
			token := &Token{
				AccessToken:  *out.AccessToken,
				RefreshToken: awssdk.ToString(out.RefreshToken),
				Expiration:   time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
			}
			c.log.Info("SSO token issued", zap.String("state", StateTokenIssued.String()),
				zap.Time("expiresAt", token.Expiration))
			return token, nil
		}

		// Expected while the user has not completed the browser step.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			c.log.Debug("token not ready", zap.String("state", StatePolling.String()),
				zap.String("code", apiErr.ErrorCode()))
		}

		if err := c.sleep(ctx, time.Duration(interval)*time.Second); err != nil {
			return nil, &AuthError{Msg: "login interrupted", Err: err}
		}
	}

	c.log.Info("login polling timed out", zap.String("state", StateTimeout.String()))
	return nil, authErrf("unable to complete SSO login flow")
}

// Login runs the full device-authorization flow: register, authorize,
// surface the verification URI through the presenter, then poll. The
// presenter is closed before returning whether or not a token was issued.
func (c *Client) Login(ctx context.Context, startURL string, presenter Presenter, cancel *CancelToken) (*ClientRegistration, *Token, error) {
	reg, err := c.Register(ctx)
	if err != nil {
		return nil, nil, err
	}

	auth, err := c.Authorize(ctx, reg, startURL)
	if err != nil {
		return nil, nil, err
	}

	if err := presenter.Present(auth.VerificationURIComplete); err != nil {
		return nil, nil, &AuthError{Msg: "failed to present verification URI", Err: err}
	}
	defer presenter.Close()

	token, err := c.AwaitToken(ctx, reg, auth, cancel)
	if err != nil {
		return nil, nil, err
	}
	return reg, token, nil
}
