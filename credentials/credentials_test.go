package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func testCreds(expiration time.Time) RoleCredentials {
	return RoleCredentials{
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
		SessionToken:    "session-token",
		Expiration:      expiration,
	}
}

func TestParseAWSDateAcceptedFormats(t *testing.T) {
	want := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name  string
		input string
	}{
		{"rfc3339 with colon offset", "2026-08-28T12:30:00+02:00"},
		{"rfc3339 without colon offset", "2026-08-28T12:30:00+0200"},
		{"zulu suffix", "2026-08-28T10:30:00Z"},
		{"space separated with colon offset", "2026-08-28 12:30:00+02:00"},
		{"space separated without colon offset", "2026-08-28 12:30:00+0200"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAWSDate(tc.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %v, want %v", got, want)
		})
	}
}

func TestParseAWSDateRejectsGarbage(t *testing.T) {
	_, err := ParseAWSDate("next tuesday")
	require.Error(t, err)

	var credErr *Error
	assert.ErrorAs(t, err, &credErr)
}

func TestPutGetRoundTrip(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "credentials"))
	expiration := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put("dev", testCreds(expiration)))

	got, err := store.Get("dev")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Expiration.Equal(expiration))
}

func TestPutWritesAllFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	store := NewStoreAt(path)
	require.NoError(t, store.Put("dev", testCreds(time.Now().Add(time.Hour))))

	cfg, err := ini.Load(path)
	require.NoError(t, err)
	section := cfg.Section("dev")

	assert.Equal(t, "AKIAEXAMPLE", section.Key("aws_access_key_id").String())
	assert.Equal(t, "secret", section.Key("aws_secret_access_key").String())
	assert.Equal(t, "session-token", section.Key("aws_session_token").String())
	// Legacy alias carries the same value.
	assert.Equal(t, "session-token", section.Key("aws_security_token").String())
	assert.NotEmpty(t, section.Key("aws_session_expiration").String())
}

func TestPutPreservesOtherSections(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "credentials"))
	require.NoError(t, store.Put("dev", testCreds(time.Now().Add(time.Hour))))
	require.NoError(t, store.Put("prod", testCreds(time.Now().Add(2*time.Hour))))

	dev, err := store.Get("dev")
	require.NoError(t, err)
	assert.NotNil(t, dev)

	prod, err := store.Get("prod")
	require.NoError(t, err)
	assert.NotNil(t, prod)
}

func TestPutRejectsIncompleteCredentials(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "credentials"))

	cases := []struct {
		name   string
		mutate func(*RoleCredentials)
	}{
		{"missing access key", func(c *RoleCredentials) { c.AccessKeyID = "" }},
		{"missing secret", func(c *RoleCredentials) { c.SecretAccessKey = "" }},
		{"missing session token", func(c *RoleCredentials) { c.SessionToken = "" }},
		{"missing expiration", func(c *RoleCredentials) { c.Expiration = time.Time{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			creds := testCreds(time.Now().Add(time.Hour))
			tc.mutate(&creds)
			require.Error(t, store.Put("dev", creds))
		})
	}
}

func TestGetAbsentFileAndSection(t *testing.T) {
	store := NewStoreAt(filepath.Join(t.TempDir(), "credentials"))

	got, err := store.Get("dev")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Put("prod", testCreds(time.Now().Add(time.Hour))))

	got, err = store.Get("dev")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetMissingExpiration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	content := "[dev]\naws_access_key_id = AKIAEXAMPLE\naws_secret_access_key = secret\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := NewStoreAt(path).Get("dev")
	require.Error(t, err)

	var credErr *Error
	assert.ErrorAs(t, err, &credErr)
}

func TestGetUnparsableExpiration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	content := "[dev]\naws_session_expiration = whenever\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := NewStoreAt(path).Get("dev")
	require.Error(t, err)
}
