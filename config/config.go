package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	profilePrefix = "profile "
	sessionPrefix = "sso-session "
)

// Error reports a problem locating or parsing the shared AWS config file.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Profile is a named [profile ...] section from the AWS config file.
// Profiles using the modern flow carry sso_session; legacy profiles carry
// sso_start_url/sso_region/sso_account_id/sso_role_name directly.
type Profile struct {
	Name       string
	properties map[string]string
}

// Get returns the named property. Lookup is case-insensitive.
func (p *Profile) Get(name string) (string, bool) {
	v, ok := p.properties[strings.ToLower(name)]
	return v, ok
}

// Session is a named [sso-session ...] section from the AWS config file.
type Session struct {
	Name       string
	properties map[string]string
}

// Get returns the named property. Lookup is case-insensitive.
func (s *Session) Get(name string) (string, bool) {
	v, ok := s.properties[strings.ToLower(name)]
	return v, ok
}

// Sections holds every profile and sso-session parsed from the config file.
// A Sections value is never mutated after construction; reloads build a
// fresh value and swap it in wholesale.
type Sections struct {
	Profiles map[string]*Profile
	Sessions map[string]*Session
}

// ProfilesUsingSession returns the profiles whose sso_session property
// names the given session, sorted by name so downstream persistence
// happens in a stable order.
func (s *Sections) ProfilesUsingSession(sessionName string) []*Profile {
	var matched []*Profile
	for _, p := range s.Profiles {
		if sess, ok := p.Get("sso_session"); ok && sess == sessionName {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched
}

// Store loads profile and sso-session definitions from the AWS config file.
type Store struct {
	configPath string
}

// NewStore resolves the config file location under the user's home directory.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, &Error{Msg: "failed to get home directory", Err: err}
	}
	return NewStoreAt(filepath.Join(homeDir, ".aws", "config")), nil
}

// NewStoreAt creates a store reading from an explicit config file path.
func NewStoreAt(path string) *Store {
	return &Store{configPath: path}
}

// Load parses the config file into Sections. Section names prefixed
// "profile " become Profiles and names prefixed "sso-session " become
// Sessions; anything else is ignored. Property keys are lower-cased so
// later lookups are case-insensitive. No semantic validation happens here;
// missing required properties surface when a consumer asks for them.
func (s *Store) Load() (*Sections, error) {
	if _, err := os.Stat(s.configPath); err != nil {
		return nil, &Error{Msg: fmt.Sprintf("no config file found at %s", s.configPath), Err: err}
	}

	cfg, err := ini.Load(s.configPath)
	if err != nil {
		return nil, &Error{Msg: "failed to parse config file", Err: err}
	}

	sections := &Sections{
		Profiles: make(map[string]*Profile),
		Sessions: make(map[string]*Session),
	}

	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}

		properties := make(map[string]string, len(section.Keys()))
		for _, key := range section.Keys() {
			properties[strings.ToLower(key.Name())] = key.Value()
		}

		switch {
		case strings.HasPrefix(name, profilePrefix):
			profileName := strings.TrimPrefix(name, profilePrefix)
			sections.Profiles[profileName] = &Profile{Name: profileName, properties: properties}
		case strings.HasPrefix(name, sessionPrefix):
			sessionName := strings.TrimPrefix(name, sessionPrefix)
			sections.Sessions[sessionName] = &Session{Name: sessionName, properties: properties}
		}
	}

	return sections, nil
}
