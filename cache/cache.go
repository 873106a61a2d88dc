package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/clispios/awth-butler/aws"
)

// timeFormat matches what the AWS CLI writes into its own cache files.
const timeFormat = "2006-01-02T15:04:05Z"

// Error reports a malformed or incomplete cache record.
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

// record is the on-disk JSON shape, shared with the AWS CLI and other
// tools that populate the same cache directory.
type record struct {
	StartURL              string  `json:"startUrl"`
	Region                string  `json:"region"`
	AccessToken           string  `json:"accessToken"`
	ClientID              string  `json:"clientId"`
	ClientSecret          string  `json:"clientSecret"`
	RegistrationExpiresAt string  `json:"registrationExpiresAt"`
	ExpiresAt             string  `json:"expiresAt"`
	RefreshToken          *string `json:"refreshToken"`
	SessionName           *string `json:"sessionName"`
}

// Fingerprint returns the hex digest used as a cache file key. The same
// input always yields the same digest, so re-storing overwrites.
func Fingerprint(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Cache persists device-flow tokens in the shared ~/.aws/sso/cache
// directory. It never expires or deletes entries; staleness is computed
// by readers.
type Cache struct {
	dir string
}

// New resolves the cache directory under the user's home directory.
func New() (*Cache, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, &Error{Msg: "failed to get home directory", Err: err}
	}
	return NewAt(filepath.Join(homeDir, ".aws", "sso", "cache")), nil
}

// NewAt creates a cache over an explicit directory.
func NewAt(dir string) *Cache {
	return &Cache{dir: dir}
}

// Store writes the token under the fingerprint of the start URL, and, when
// a session name is given, an identical record under the fingerprint of
// the session name. The two copies can diverge if the second write fails
// after the first succeeds; there is no reconciliation step.
func (c *Cache) Store(sessionName, startURL, region string, reg *aws.ClientRegistration, token *aws.Token) error {
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return &Error{Msg: "failed to create cache directory", Err: err}
	}

	entry := record{
		StartURL:              startURL,
		Region:                region,
		AccessToken:           token.AccessToken,
		ClientID:              reg.ClientID,
		ClientSecret:          reg.ClientSecret,
		RegistrationExpiresAt: reg.ExpiresAt.UTC().Format(timeFormat),
		ExpiresAt:             token.Expiration.UTC().Format(timeFormat),
	}
	if token.RefreshToken != "" {
		entry.RefreshToken = &token.RefreshToken
	}
	if sessionName != "" {
		entry.SessionName = &sessionName
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return &Error{Msg: "failed to marshal cache entry", Err: err}
	}

	urlFile := filepath.Join(c.dir, Fingerprint(startURL)+".json")
	if err := os.WriteFile(urlFile, data, 0600); err != nil {
		return &Error{Msg: "failed to write cache entry", Err: err}
	}

	if sessionName != "" {
		nameFile := filepath.Join(c.dir, Fingerprint(sessionName)+".json")
		if err := os.WriteFile(nameFile, data, 0600); err != nil {
			return &Error{Msg: "failed to write session cache entry", Err: err}
		}
	}

	return nil
}

// Lookup scans the cache directory for the first record whose sessionName
// matches. A linear scan is deliberate: other tools populate the same
// directory with fingerprint-of-start-url entries, so matching on the
// embedded field is the only reliable way to find a session's token.
// Malformed files that do not match are skipped; a matching record with
// missing or unparsable fields is an error. An absent directory or no
// match is (nil, nil).
func (c *Cache) Lookup(sessionName string) (*aws.Token, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Msg: "failed to read cache directory", Err: err}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			continue
		}

		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		if rec.SessionName == nil || *rec.SessionName != sessionName {
			continue
		}

		if rec.AccessToken == "" || rec.ExpiresAt == "" {
			return nil, &Error{Msg: fmt.Sprintf("invalid cache entry %s", entry.Name())}
		}
		expiration, err := time.Parse(time.RFC3339, rec.ExpiresAt)
		if err != nil {
			return nil, &Error{Msg: fmt.Sprintf("invalid expiration in cache entry %s", entry.Name()), Err: err}
		}

		token := &aws.Token{
			AccessToken: rec.AccessToken,
			Expiration:  expiration,
		}
		if rec.RefreshToken != nil {
			token.RefreshToken = *rec.RefreshToken
		}
		return token, nil
	}

	return nil, nil
}
