package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `[profile dev]
sso_session = work
sso_account_id = 111
sso_role_name = Admin

[profile old-school]
SSO_Start_URL = https://legacy.awsapps.com/start
sso_region = eu-west-1
sso_account_id = 222
sso_role_name = ReadOnly

[sso-session work]
sso_region = us-east-1
sso_start_url = https://x.awsapps.com/start

[default]
region = us-west-2

[services my-endpoints]
s3 = foo
`

func writeConfig(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return NewStoreAt(path)
}

func TestLoadParsesProfilesAndSessions(t *testing.T) {
	sections, err := writeConfig(t, sampleConfig).Load()
	require.NoError(t, err)

	require.Len(t, sections.Profiles, 2)
	require.Len(t, sections.Sessions, 1)

	dev, ok := sections.Profiles["dev"]
	require.True(t, ok)
	sess, ok := dev.Get("sso_session")
	require.True(t, ok)
	assert.Equal(t, "work", sess)

	work, ok := sections.Sessions["work"]
	require.True(t, ok)
	region, ok := work.Get("sso_region")
	require.True(t, ok)
	assert.Equal(t, "us-east-1", region)
}

func TestLoadIgnoresUnrelatedSections(t *testing.T) {
	sections, err := writeConfig(t, sampleConfig).Load()
	require.NoError(t, err)

	_, hasDefault := sections.Profiles["default"]
	assert.False(t, hasDefault)
	_, hasServices := sections.Profiles["my-endpoints"]
	assert.False(t, hasServices)
}

func TestPropertyLookupIsCaseInsensitive(t *testing.T) {
	sections, err := writeConfig(t, sampleConfig).Load()
	require.NoError(t, err)

	legacy := sections.Profiles["old-school"]
	require.NotNil(t, legacy)

	// Written as SSO_Start_URL in the file.
	url, ok := legacy.Get("sso_start_url")
	require.True(t, ok)
	assert.Equal(t, "https://legacy.awsapps.com/start", url)

	url, ok = legacy.Get("SSO_START_URL")
	require.True(t, ok)
	assert.Equal(t, "https://legacy.awsapps.com/start", url)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewStoreAt(filepath.Join(t.TempDir(), "nope")).Load()
	require.Error(t, err)

	var cfgErr *Error
	assert.ErrorAs(t, err, &cfgErr)
}

func TestProfilesUsingSession(t *testing.T) {
	sections, err := writeConfig(t, sampleConfig).Load()
	require.NoError(t, err)

	matched := sections.ProfilesUsingSession("work")
	require.Len(t, matched, 1)
	assert.Equal(t, "dev", matched[0].Name)

	assert.Empty(t, sections.ProfilesUsingSession("home"))
}
