package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Identity is the principal a persisted profile resolves to.
type Identity struct {
	Arn     string
	Account string
	UserID  string
}

// CallerIdentity asks STS who the client's credentials belong to.
func (c *Client) CallerIdentity(ctx context.Context) (Identity, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, &AuthError{Msg: "credential check failed", Err: err}
	}
	return Identity{
		Arn:     awssdk.ToString(out.Arn),
		Account: awssdk.ToString(out.Account),
		UserID:  awssdk.ToString(out.UserId),
	}, nil
}

// VerifyCredentials checks that the credentials persisted for a profile
// actually work by resolving them through the shared config files and
// asking STS for the caller identity.
func VerifyCredentials(ctx context.Context, profileName string) (Identity, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithSharedConfigProfile(profileName))
	if err != nil {
		return Identity{}, &AuthError{Msg: "failed to load profile config", Err: err}
	}
	client := NewClientWith(nil, nil, sts.NewFromConfig(cfg), nil)
	return client.CallerIdentity(ctx)
}
