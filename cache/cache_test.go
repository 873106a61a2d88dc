package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clispios/awth-butler/aws"
)

var testReg = &aws.ClientRegistration{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	ExpiresAt:    time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
}

func testToken(refresh string) *aws.Token {
	return &aws.Token{
		AccessToken:  "access-token",
		RefreshToken: refresh,
		Expiration:   time.Date(2026, 8, 28, 18, 0, 0, 0, time.UTC),
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("https://x.awsapps.com/start")
	b := Fingerprint("https://x.awsapps.com/start")
	c := Fingerprint("https://y.awsapps.com/start")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 40) // sha1 hex
}

func TestStoreLookupRoundTrip(t *testing.T) {
	c := NewAt(filepath.Join(t.TempDir(), "cache"))
	want := testToken("refresh-token")

	require.NoError(t, c.Store("work", "https://x.awsapps.com/start", "us-east-1", testReg, want))

	got, err := c.Lookup("work")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, got.Expiration.Equal(want.Expiration.Truncate(time.Second)))
}

func TestStoreWritesBothFingerprints(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewAt(dir)

	require.NoError(t, c.Store("work", "https://x.awsapps.com/start", "us-east-1", testReg, testToken("")))

	urlFile := filepath.Join(dir, Fingerprint("https://x.awsapps.com/start")+".json")
	nameFile := filepath.Join(dir, Fingerprint("work")+".json")

	urlData, err := os.ReadFile(urlFile)
	require.NoError(t, err)
	nameData, err := os.ReadFile(nameFile)
	require.NoError(t, err)
	assert.Equal(t, urlData, nameData)
}

func TestStoreWithoutSessionNameWritesOneFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewAt(dir)

	require.NoError(t, c.Store("", "https://x.awsapps.com/start", "us-east-1", testReg, testToken("")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// A record stored without a session name is invisible to Lookup.
	got, err := c.Lookup("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewAt(dir)
	tok := testToken("refresh-token")

	require.NoError(t, c.Store("work", "https://x.awsapps.com/start", "us-east-1", testReg, tok))
	first, err := os.ReadDir(dir)
	require.NoError(t, err)

	require.NoError(t, c.Store("work", "https://x.awsapps.com/start", "us-east-1", testReg, tok))
	second, err := os.ReadDir(dir)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	got, err := c.Lookup("work")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
}

func TestLookupSkipsUnrelatedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewAt(dir)
	require.NoError(t, os.MkdirAll(dir, 0700))

	// Files other tools drop into the shared cache directory.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aaa.json"), []byte("not json"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bbb.json"), []byte(`{"startUrl":"https://other"}`), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subdir"), 0700))

	require.NoError(t, c.Store("work", "https://x.awsapps.com/start", "us-east-1", testReg, testToken("")))

	got, err := c.Lookup("work")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestLookupMatchingRecordMissingFields(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewAt(dir)
	require.NoError(t, os.MkdirAll(dir, 0700))

	record := `{"sessionName":"work","expiresAt":"2026-08-28T18:00:00Z"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(record), 0600))

	_, err := c.Lookup("work")
	require.Error(t, err)

	var cacheErr *Error
	assert.ErrorAs(t, err, &cacheErr)
}

func TestLookupUnparsableExpiration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewAt(dir)
	require.NoError(t, os.MkdirAll(dir, 0700))

	record := `{"sessionName":"work","accessToken":"tok","expiresAt":"soon"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(record), 0600))

	_, err := c.Lookup("work")
	require.Error(t, err)
}

func TestLookupAbsentDirectory(t *testing.T) {
	c := NewAt(filepath.Join(t.TempDir(), "never-created"))

	got, err := c.Lookup("work")
	require.NoError(t, err)
	assert.Nil(t, got)
}
