package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/creators"
	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "creator:"

var _ creators.Repo = (*Repo)(nil)

type record struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	SealedToken  string    `json:"sealedToken"`
	RegisteredAt time.Time `json:"registeredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Repo keeps creators in Redis as JSON under "creator:<lowercased id>".
type Repo struct {
	client  redis.Cmdable
	sealer  *Sealer
	prefix  string
	nowTime func() time.Time
}

// RepoOption defines a function type to modify the Repo instance.
type RepoOption func(*Repo)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) RepoOption {
	return func(r *Repo) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) RepoOption {
	return func(r *Repo) {
		r.nowTime = nowFunc
	}
}

func New(client redis.Cmdable, sealer *Sealer, options ...RepoOption) (*Repo, error) {
	if client == nil {
		return nil, errors.New("[redisrepo New] redis client is required")
	}
	if sealer == nil {
		return nil, errors.New("[redisrepo New] sealer is required")
	}
	r := &Repo{
		client:  client,
		sealer:  sealer,
		prefix:  defaultPrefix,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Connect parses a redis:// URL and verifies the server answers PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[redisrepo Connect] parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[redisrepo Connect] redis ping failed: %w", err)
	}
	return client, nil
}

func (r *Repo) key(creatorID string) string {
	return r.prefix + creators.NormalizeID(creatorID)
}

func (r *Repo) AccessCredential(ctx context.Context, creatorID string) (string, error) {
	c, err := r.Get(ctx, creatorID)
	if err != nil {
		return "", err
	}
	if c.AccessToken == "" {
		return "", fmt.Errorf("[Repo AccessCredential] creator %q has no access token: %w", creatorID, apperrors.ErrCreatorNotFound)
	}
	return c.AccessToken, nil
}

func (r *Repo) Get(ctx context.Context, creatorID string) (*creators.Creator, error) {
	if creators.NormalizeID(creatorID) == "" {
		return nil, apperrors.ErrCreatorNotFound
	}
	val, err := r.client.Get(ctx, r.key(creatorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrCreatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[Repo Get] failed to get creator: %w", err)
	}

	var rec record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("[Repo Get] failed to unmarshal creator: %w", err)
	}
	accessToken := ""
	if rec.SealedToken != "" {
		if accessToken, err = r.sealer.Open(rec.SealedToken); err != nil {
			return nil, fmt.Errorf("[Repo Get] %w", err)
		}
	}
	return &creators.Creator{
		ID:           rec.ID,
		Name:         rec.Name,
		AccessToken:  accessToken,
		RegisteredAt: rec.RegisteredAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

// Upsert stores creator, keeping the original registration time when the
// creator already exists.
func (r *Repo) Upsert(ctx context.Context, creator *creators.Creator) error {
	if creator == nil || creators.NormalizeID(creator.ID) == "" {
		return errors.New("[Repo Upsert] creator id is required")
	}
	now := r.nowTime().UTC()
	rec := record{
		ID:           creator.ID,
		Name:         creator.Name,
		RegisteredAt: creator.RegisteredAt,
		UpdatedAt:    now,
	}
	if rec.RegisteredAt.IsZero() {
		existing, err := r.Get(ctx, creator.ID)
		switch {
		case err == nil:
			rec.RegisteredAt = existing.RegisteredAt
		case errors.Is(err, apperrors.ErrCreatorNotFound):
			rec.RegisteredAt = now
		default:
			return err
		}
	}
	if creator.AccessToken != "" {
		sealed, err := r.sealer.Seal(creator.AccessToken)
		if err != nil {
			return fmt.Errorf("[Repo Upsert] %w", err)
		}
		rec.SealedToken = sealed
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("[Repo Upsert] failed to marshal creator: %w", err)
	}
	if err := r.client.Set(ctx, r.key(creator.ID), b, 0).Err(); err != nil {
		return fmt.Errorf("[Repo Upsert] failed to store creator: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, creatorID string) error {
	if err := r.client.Del(ctx, r.key(creatorID)).Err(); err != nil {
		return fmt.Errorf("[Repo Delete] failed to delete creator: %w", err)
	}
	return nil
}
