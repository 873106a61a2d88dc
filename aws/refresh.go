package aws

import (
	"context"
	"sync"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"go.uber.org/zap"

	"github.com/clispios/awth-butler/config"
	"github.com/clispios/awth-butler/credentials"
)

// CredentialSink persists one profile's role credentials. Satisfied by
// *credentials.Store.
type CredentialSink interface {
	Put(profileName string, creds credentials.RoleCredentials) error
}

// GetRoleCredentials exchanges an access token for one account/role pair's
// short-lived credentials.
func (c *Client) GetRoleCredentials(ctx context.Context, accessToken, accountID, roleName string) (credentials.RoleCredentials, error) {
	out, err := c.sso.GetRoleCredentials(ctx, &sso.GetRoleCredentialsInput{
		AccessToken: awssdk.String(accessToken),
		AccountId:   awssdk.String(accountID),
		RoleName:    awssdk.String(roleName),
	})
	if err != nil {
		return credentials.RoleCredentials{}, &AuthError{Msg: "failed to get role credentials", Err: err}
	}
	rc := out.RoleCredentials
	if rc == nil {
		return credentials.RoleCredentials{}, authErrf("missing role credentials after login")
	}

	return credentials.RoleCredentials{
		AccessKeyID:     awssdk.ToString(rc.AccessKeyId),
		SecretAccessKey: awssdk.ToString(rc.SecretAccessKey),
		SessionToken:    awssdk.ToString(rc.SessionToken),
		Expiration:      time.UnixMilli(rc.Expiration).UTC(),
	}, nil
}

// RefreshSession fetches role credentials for every profile bound to the
// named session and persists them. All exchanges run concurrently; if any
// one fails the whole refresh fails and nothing is persisted. Persistence
// is sequential so no two writers contend for the credentials file. There
// is no cancellation path once the fan-out begins.
func (c *Client) RefreshSession(ctx context.Context, sections *config.Sections, sessionName string, token *Token, sink CredentialSink) error {
	profiles := sections.ProfilesUsingSession(sessionName)

	type outcome struct {
		profileName string
		creds       credentials.RoleCredentials
		err         error
	}

	results := make([]outcome, len(profiles))
	var wg sync.WaitGroup
	for i, profile := range profiles {
		wg.Add(1)
		go func(i int, profile *config.Profile) {
			defer wg.Done()
			results[i] = outcome{profileName: profile.Name}

			accountID, ok := profile.Get("sso_account_id")
			if !ok {
				results[i].err = authErrf("no account ID found for profile %s", profile.Name)
				return
			}
			roleName, ok := profile.Get("sso_role_name")
			if !ok {
				results[i].err = authErrf("no role name found for profile %s", profile.Name)
				return
			}

			creds, err := c.GetRoleCredentials(ctx, token.AccessToken, accountID, roleName)
			if err != nil {
				results[i].err = err
				return
			}
			results[i].creds = creds
		}(i, profile)
	}
	wg.Wait()

	// Commit nothing unless every exchange succeeded; a partial refresh
	// would leave sibling profiles silently stale.
	for _, r := range results {
		if r.err != nil {
			return r.err
		}
	}

	for _, r := range results {
		if err := sink.Put(r.profileName, r.creds); err != nil {
			return err
		}
		c.log.Debug("stored role credentials", zap.String("profile", r.profileName),
			zap.Time("expiresAt", r.creds.Expiration))
	}

	return nil
}
