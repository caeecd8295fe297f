package config

import (
	"fmt"
	"time"
)

type StorageConfig interface {
	GetRedisURL() string
	GetBucketName() string
	GetBucketEndpoint() string
	GetBucketAccessKeyID() string
	GetBucketSecretAccessKey() string
	GetSignedURLTTL() time.Duration
	GetMetadataURLTTL() time.Duration
}

type Storage struct {
	redisURL        string
	bucket          string
	endpoint        string
	accessKeyID     string
	secretAccessKey string
	mediaURLTTL     time.Duration
	metadataURLTTL  time.Duration
}

var _ StorageConfig = Storage{}

func newStorage(get func(string, string) string) (Storage, error) {
	mediaTTL, err := time.ParseDuration(get("SIGNED_URL_TTL", "5m"))
	if err != nil || mediaTTL <= 0 {
		return Storage{}, fmt.Errorf("[config] invalid SIGNED_URL_TTL %q", get("SIGNED_URL_TTL", ""))
	}
	metadataTTL, err := time.ParseDuration(get("METADATA_URL_TTL", "1m"))
	if err != nil || metadataTTL <= 0 {
		return Storage{}, fmt.Errorf("[config] invalid METADATA_URL_TTL %q", get("METADATA_URL_TTL", ""))
	}

	endpoint := get("R2_ENDPOINT", "")
	if endpoint == "" {
		if account := get("R2_ACCOUNT_ID", ""); account != "" {
			endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", account)
		}
	}
	return Storage{
		redisURL:        get("REDIS_URL", ""),
		bucket:          get("R2_BUCKET_NAME", ""),
		endpoint:        endpoint,
		accessKeyID:     get("R2_ACCESS_KEY_ID", ""),
		secretAccessKey: get("R2_SECRET_ACCESS_KEY", ""),
		mediaURLTTL:     mediaTTL,
		metadataURLTTL:  metadataTTL,
	}, nil
}

func (s Storage) GetRedisURL() string {
	return s.redisURL
}

func (s Storage) GetBucketName() string {
	return s.bucket
}

// GetBucketEndpoint is derived from R2_ACCOUNT_ID unless R2_ENDPOINT overrides it.
func (s Storage) GetBucketEndpoint() string {
	return s.endpoint
}

func (s Storage) GetBucketAccessKeyID() string {
	return s.accessKeyID
}

func (s Storage) GetBucketSecretAccessKey() string {
	return s.secretAccessKey
}

// GetSignedURLTTL is how long presigned playlist and segment URLs stay valid.
func (s Storage) GetSignedURLTTL() time.Duration {
	return s.mediaURLTTL
}

func (s Storage) GetMetadataURLTTL() time.Duration {
	return s.metadataURLTTL
}
