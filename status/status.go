// Package status derives freshness summaries for sessions and profiles
// from the token cache and the credentials file. It is a pure read path:
// nothing here mutates any store.
package status

import (
	"sort"
	"time"

	"github.com/clispios/awth-butler/aws"
	"github.com/clispios/awth-butler/config"
	"github.com/clispios/awth-butler/credentials"
)

// TokenSource looks up a cached SSO token by session name. Satisfied by
// *cache.Cache.
type TokenSource interface {
	Lookup(sessionName string) (*aws.Token, error)
}

// CredentialSource looks up persisted role credentials by profile name.
// Satisfied by *credentials.Store.
type CredentialSource interface {
	Get(profileName string) (*credentials.RoleCredentials, error)
}

// Session summarizes one sso-session and the profiles bound to it.
type Session struct {
	SessionName       string     `json:"session_name"`
	SessionExpiration *time.Time `json:"session_expiration"`
	Fresh             bool       `json:"fresh"`
	ProfileNames      []string   `json:"profile_names"`
}

// Profile summarizes one session-bound profile's persisted credentials.
type Profile struct {
	ProfileName       string     `json:"profile_name"`
	SessionName       string     `json:"session_name"`
	ProfileExpiration *time.Time `json:"profile_expiration"`
	Fresh             bool       `json:"fresh"`
}

// LegacyProfile summarizes a profile that carries its own SSO properties
// instead of referencing a session.
type LegacyProfile struct {
	ProfileName       string     `json:"profile_name"`
	ProfileExpiration *time.Time `json:"profile_expiration"`
	Fresh             bool       `json:"fresh"`
}

// ButlerSsoConfig is the presentation model handed to the UI.
type ButlerSsoConfig struct {
	Sessions       []Session       `json:"sessions"`
	SsoProfiles    []Profile       `json:"sso_profiles"`
	LegacyProfiles []LegacyProfile `json:"legacy_profiles"`
}

// fresh is a strict comparison: an expiration equal to now is stale.
func fresh(expiration *time.Time, now time.Time) bool {
	return expiration != nil && expiration.After(now)
}

// Build assembles the status view. Absence of a cached token or persisted
// credentials reports as not fresh with no expiration, never as an error.
func Build(sections *config.Sections, tokens TokenSource, creds CredentialSource, now time.Time) (*ButlerSsoConfig, error) {
	view := &ButlerSsoConfig{
		Sessions:       []Session{},
		SsoProfiles:    []Profile{},
		LegacyProfiles: []LegacyProfile{},
	}

	for _, session := range sections.Sessions {
		var expiration *time.Time
		token, err := tokens.Lookup(session.Name)
		if err != nil {
			return nil, err
		}
		if token != nil {
			exp := token.Expiration
			expiration = &exp
		}

		profileNames := []string{}
		for _, profile := range sections.ProfilesUsingSession(session.Name) {
			profileNames = append(profileNames, profile.Name)
		}
		sort.Strings(profileNames)

		view.Sessions = append(view.Sessions, Session{
			SessionName:       session.Name,
			SessionExpiration: expiration,
			Fresh:             fresh(expiration, now),
			ProfileNames:      profileNames,
		})
	}

	for _, profile := range sections.Profiles {
		sessionName, hasSession := profile.Get("sso_session")
		_, hasRegion := profile.Get("sso_region")
		_, hasStartURL := profile.Get("sso_start_url")

		if !hasSession && !(hasRegion && hasStartURL) {
			// Not an SSO profile at all; static profiles are out of scope.
			continue
		}

		expiration, err := credentialExpiration(creds, profile.Name)
		if err != nil {
			return nil, err
		}

		if hasSession {
			view.SsoProfiles = append(view.SsoProfiles, Profile{
				ProfileName:       profile.Name,
				SessionName:       sessionName,
				ProfileExpiration: expiration,
				Fresh:             fresh(expiration, now),
			})
		} else {
			view.LegacyProfiles = append(view.LegacyProfiles, LegacyProfile{
				ProfileName:       profile.Name,
				ProfileExpiration: expiration,
				Fresh:             fresh(expiration, now),
			})
		}
	}

	sort.Slice(view.Sessions, func(i, j int) bool { return view.Sessions[i].SessionName < view.Sessions[j].SessionName })
	sort.Slice(view.SsoProfiles, func(i, j int) bool { return view.SsoProfiles[i].ProfileName < view.SsoProfiles[j].ProfileName })
	sort.Slice(view.LegacyProfiles, func(i, j int) bool { return view.LegacyProfiles[i].ProfileName < view.LegacyProfiles[j].ProfileName })

	return view, nil
}

func credentialExpiration(creds CredentialSource, profileName string) (*time.Time, error) {
	rc, err := creds.Get(profileName)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, nil
	}
	exp := rc.Expiration
	return &exp, nil
}
