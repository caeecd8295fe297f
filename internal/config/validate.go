package config

import (
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
)

const minProductionSecretLength = 32

// Validate reports the first missing or unsafe setting. The server refuses to
// start when it fails rather than run with undefined security properties.
func (c mainConfig) Validate() error {
	missing := func(name string) error {
		return apperrors.New(apperrors.KindConfiguration, "missing_"+strings.ToLower(name), name+" must be set")
	}

	if c.GetSigningSecret() == "" {
		return missing("JWT_SECRET")
	}
	if c.GetEnv().IsProduction() && len(c.GetSigningSecret()) < minProductionSecretLength {
		return apperrors.New(apperrors.KindConfiguration, "weak_jwt_secret", "JWT_SECRET must be at least 32 bytes in production")
	}
	if c.GetClientID() == "" {
		return missing("GITHUB_CLIENT_ID")
	}
	if c.GetClientSecret() == "" {
		return missing("GITHUB_CLIENT_SECRET")
	}

	base, err := url.Parse(c.GetBaseURL())
	if err != nil || base.Scheme == "" || base.Host == "" {
		return apperrors.New(apperrors.KindConfiguration, "invalid_public_base_url", "PUBLIC_BASE_URL must be an absolute URL")
	}
	if c.GetEnv().IsProduction() && base.Scheme != "https" {
		return apperrors.New(apperrors.KindConfiguration, "insecure_public_base_url", "PUBLIC_BASE_URL must use https in production")
	}

	if c.GetRedisURL() == "" {
		return missing("REDIS_URL")
	}
	if c.GetBucketName() == "" {
		return missing("R2_BUCKET_NAME")
	}
	if c.GetBucketEndpoint() == "" {
		return missing("R2_ACCOUNT_ID")
	}
	if c.GetBucketAccessKeyID() == "" || c.GetBucketSecretAccessKey() == "" {
		return missing("R2_ACCESS_KEY_ID")
	}
	return nil
}
