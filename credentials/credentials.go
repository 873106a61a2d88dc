package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
)

// Accepted expiration formats, tried in order. AWS tooling is not
// consistent about how it writes aws_session_expiration.
var dateFormats = []string{
	"2006-01-02T15:04:05-07:00", // standard RFC3339
	"2006-01-02T15:04:05-0700",  // without colon in offset
	"2006-01-02T15:04:05Z",      // UTC/Zulu suffix
	"2006-01-02 15:04:05-07:00", // space instead of T
	"2006-01-02 15:04:05-0700",  // space instead of T, no colon in offset
}

// Error reports a malformed or incomplete credentials record.
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

// RoleCredentials is the persisted shape of one profile's short-lived
// credentials. Only the expiration is ever read back; the other fields
// are write-only from this subsystem's perspective.
type RoleCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// ParseAWSDate parses an expiration in any of the accepted formats,
// first match wins, normalized to UTC.
func ParseAWSDate(s string) (time.Time, error) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &Error{Msg: fmt.Sprintf("failed to parse date %q", s)}
}

// Store reads and writes the shared AWS credentials file, one ini section
// per profile. Writes are load-modify-store over the whole file; there is
// no file locking, so a concurrent external writer is a known race.
type Store struct {
	credentialsPath string
}

// NewStore resolves the credentials file under the user's home directory.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, &Error{Msg: "failed to get home directory", Err: err}
	}
	return NewStoreAt(filepath.Join(homeDir, ".aws", "credentials")), nil
}

// NewStoreAt creates a store over an explicit credentials file path.
func NewStoreAt(path string) *Store {
	return &Store{credentialsPath: path}
}

// Get returns the named profile's persisted credentials with only the
// expiration populated. An absent file or section is (nil, nil), not an
// error; a section missing its expiration is.
func (s *Store) Get(profileName string) (*RoleCredentials, error) {
	if _, err := os.Stat(s.credentialsPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Msg: "failed to read credentials file", Err: err}
	}

	cfg, err := ini.Load(s.credentialsPath)
	if err != nil {
		return nil, &Error{Msg: "failed to parse credentials file", Err: err}
	}

	section, err := cfg.GetSection(profileName)
	if err != nil {
		return nil, nil
	}

	if !section.HasKey("aws_session_expiration") {
		return nil, &Error{Msg: fmt.Sprintf("missing expiration timestamp for profile %s", profileName)}
	}
	expiration, err := ParseAWSDate(section.Key("aws_session_expiration").String())
	if err != nil {
		return nil, err
	}

	return &RoleCredentials{Expiration: expiration}, nil
}

// Put upserts the named profile's section and writes the whole file back.
// The session token is duplicated under aws_security_token for tools that
// still read the legacy field name.
func (s *Store) Put(profileName string, creds RoleCredentials) error {
	if creds.AccessKeyID == "" {
		return &Error{Msg: "missing access key ID"}
	}
	if creds.SecretAccessKey == "" {
		return &Error{Msg: "missing secret access key"}
	}
	if creds.SessionToken == "" {
		return &Error{Msg: "missing session token"}
	}
	if creds.Expiration.IsZero() {
		return &Error{Msg: "missing expiration timestamp"}
	}

	if err := os.MkdirAll(filepath.Dir(s.credentialsPath), 0700); err != nil {
		return &Error{Msg: "failed to create .aws directory", Err: err}
	}

	cfg, err := ini.Load(s.credentialsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return &Error{Msg: "failed to parse credentials file", Err: err}
		}
		cfg = ini.Empty()
	}

	section := cfg.Section(profileName)
	section.Key("aws_access_key_id").SetValue(creds.AccessKeyID)
	section.Key("aws_secret_access_key").SetValue(creds.SecretAccessKey)
	section.Key("aws_session_token").SetValue(creds.SessionToken)
	section.Key("aws_security_token").SetValue(creds.SessionToken)
	section.Key("aws_session_expiration").SetValue(creds.Expiration.UTC().Format(time.RFC3339))

	if err := cfg.SaveTo(s.credentialsPath); err != nil {
		return &Error{Msg: "failed to save credentials file", Err: err}
	}

	return nil
}
