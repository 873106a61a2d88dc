// Package app owns the application state and exposes the command surface
// the presentation layer drives: authenticate, refresh profiles, and the
// status view.
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clispios/awth-butler/aws"
	"github.com/clispios/awth-butler/config"
	"github.com/clispios/awth-butler/credentials"
	"github.com/clispios/awth-butler/status"
)

// LoginType selects between the modern session flow and a legacy profile
// that carries its own SSO properties.
type LoginType string

const (
	LoginSsoSession    LoginType = "SsoSession"
	LoginLegacyProfile LoginType = "LegacyProfile"
)

// ConfigLoader reloads the parsed config sections. Satisfied by *config.Store.
type ConfigLoader interface {
	Load() (*config.Sections, error)
}

// TokenStore caches device-flow tokens. Satisfied by *cache.Cache.
type TokenStore interface {
	Store(sessionName, startURL, region string, reg *aws.ClientRegistration, token *aws.Token) error
	Lookup(sessionName string) (*aws.Token, error)
}

// CredentialStore persists per-profile role credentials. Satisfied by
// *credentials.Store.
type CredentialStore interface {
	Get(profileName string) (*credentials.RoleCredentials, error)
	Put(profileName string, creds credentials.RoleCredentials) error
}

// ClientFactory builds a region-scoped AWS client.
type ClientFactory func(ctx context.Context, region string) (*aws.Client, error)

// App holds the in-memory config sections behind a mutex. The sections
// value itself is immutable; a reload swaps the whole pointer so readers
// never observe a half-updated map.
type App struct {
	mu       sync.Mutex
	sections *config.Sections

	loader    ConfigLoader
	tokens    TokenStore
	creds     CredentialStore
	newClient ClientFactory
	presenter aws.Presenter
	cancel    *aws.CancelToken
	log       *zap.Logger
}

// New loads the config once and wires the collaborators together.
func New(loader ConfigLoader, tokens TokenStore, creds CredentialStore, newClient ClientFactory, presenter aws.Presenter, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	sections, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return &App{
		sections:  sections,
		loader:    loader,
		tokens:    tokens,
		creds:     creds,
		newClient: newClient,
		presenter: presenter,
		cancel:    aws.NewCancelToken(),
		log:       log,
	}, nil
}

// CancelLogin forwards the presentation surface's close signal to the
// polling loop. Safe to call at any time.
func (a *App) CancelLogin() {
	a.cancel.Cancel()
}

// RefreshProfiles reparses the config file and swaps the sections in
// wholesale. Called at startup's behest and whenever the config directory
// changes.
func (a *App) RefreshProfiles() error {
	sections, err := a.loader.Load()
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.sections = sections
	a.mu.Unlock()

	a.log.Debug("profiles reloaded",
		zap.Int("profiles", len(sections.Profiles)),
		zap.Int("sessions", len(sections.Sessions)))
	return nil
}

// FetchButlerConfig builds the freshness view for presentation.
func (a *App) FetchButlerConfig() (*status.ButlerSsoConfig, error) {
	return status.Build(a.snapshot(), a.tokens, a.creds, time.Now())
}

// Authenticate runs a full login for the named session or legacy profile.
func (a *App) Authenticate(ctx context.Context, loginType LoginType, name string) error {
	switch loginType {
	case LoginLegacyProfile:
		return a.legacyProfileLogin(ctx, name)
	default:
		return a.ssoSessionLogin(ctx, name)
	}
}

func (a *App) snapshot() *config.Sections {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sections
}

// ssoSessionLogin authenticates the named session and refreshes every
// profile bound to it.
func (a *App) ssoSessionLogin(ctx context.Context, sessionName string) error {
	sections := a.snapshot()

	session, ok := sections.Sessions[sessionName]
	if !ok {
		return &aws.AuthError{Msg: "session not found: " + sessionName}
	}
	region, ok := session.Get("sso_region")
	if !ok {
		return &aws.AuthError{Msg: "no region found for session " + sessionName}
	}
	startURL, ok := session.Get("sso_start_url")
	if !ok {
		return &aws.AuthError{Msg: "no start URL found for session " + sessionName}
	}

	client, err := a.newClient(ctx, region)
	if err != nil {
		return err
	}

	reg, token, err := client.Login(ctx, startURL, a.presenter, a.cancel)
	if err != nil {
		return err
	}

	if err := a.tokens.Store(sessionName, startURL, region, reg, token); err != nil {
		return err
	}

	a.log.Info("session authenticated", zap.String("session", sessionName))
	return client.RefreshSession(ctx, sections, sessionName, token, a.creds)
}

// legacyProfileLogin authenticates a profile that carries its own SSO
// properties. Exactly one role exchange and persist follows; no fan-out.
func (a *App) legacyProfileLogin(ctx context.Context, profileName string) error {
	sections := a.snapshot()

	profile, ok := sections.Profiles[profileName]
	if !ok {
		return &aws.AuthError{Msg: "profile not found: " + profileName}
	}
	region, ok := profile.Get("sso_region")
	if !ok {
		return &aws.AuthError{Msg: "no sso_region found for profile " + profileName}
	}
	startURL, ok := profile.Get("sso_start_url")
	if !ok {
		return &aws.AuthError{Msg: "no sso_start_url found for profile " + profileName}
	}
	accountID, ok := profile.Get("sso_account_id")
	if !ok {
		return &aws.AuthError{Msg: "no account ID found for profile " + profileName}
	}
	roleName, ok := profile.Get("sso_role_name")
	if !ok {
		return &aws.AuthError{Msg: "no role name found for profile " + profileName}
	}

	client, err := a.newClient(ctx, region)
	if err != nil {
		return err
	}

	reg, token, err := client.Login(ctx, startURL, a.presenter, a.cancel)
	if err != nil {
		return err
	}

	if err := a.tokens.Store("", startURL, region, reg, token); err != nil {
		return err
	}

	creds, err := client.GetRoleCredentials(ctx, token.AccessToken, accountID, roleName)
	if err != nil {
		return err
	}

	a.log.Info("legacy profile authenticated", zap.String("profile", profileName))
	return a.creds.Put(profileName, creds)
}
