package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"
)

// oidcAPI is the slice of the SSO OIDC service the device flow needs.
type oidcAPI interface {
	RegisterClient(ctx context.Context, params *ssooidc.RegisterClientInput, optFns ...func(*ssooidc.Options)) (*ssooidc.RegisterClientOutput, error)
	StartDeviceAuthorization(ctx context.Context, params *ssooidc.StartDeviceAuthorizationInput, optFns ...func(*ssooidc.Options)) (*ssooidc.StartDeviceAuthorizationOutput, error)
	CreateToken(ctx context.Context, params *ssooidc.CreateTokenInput, optFns ...func(*ssooidc.Options)) (*ssooidc.CreateTokenOutput, error)
}

// ssoAPI is the slice of the SSO portal service used for role exchange.
type ssoAPI interface {
	GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error)
}

// stsAPI is used only to verify persisted credentials.
type stsAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Client wraps the AWS service clients for one identity-provider region.
type Client struct {
	oidc oidcAPI
	sso  ssoAPI
	sts  stsAPI
	log  *zap.Logger

	// overridable in tests so polling does not really sleep
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient initializes service clients for a specific region.
func NewClient(ctx context.Context, region string, log *zap.Logger) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return NewClientWith(ssooidc.NewFromConfig(cfg), sso.NewFromConfig(cfg), sts.NewFromConfig(cfg), log), nil
}

// NewClientWith builds a Client from explicit API implementations.
func NewClientWith(oidc oidcAPI, ssoClient ssoAPI, stsClient stsAPI, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		oidc:  oidc,
		sso:   ssoClient,
		sts:   stsClient,
		log:   log,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
