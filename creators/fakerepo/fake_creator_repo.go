package fakecreatorrepo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/go-sponsor-gate/creators"
	apperrors "github.com/jrsteele09/go-sponsor-gate/internal/errors"
)

var _ creators.Repo = (*FakeCreatorRepo)(nil)

type FakeCreatorRepo struct {
	creators map[string]creators.Creator
	lock     sync.RWMutex

	// Err, when set, is returned by every call.
	Err error
	// Lookups counts AccessCredential calls.
	Lookups int
}

func NewFakeCreatorRepo() *FakeCreatorRepo {
	return &FakeCreatorRepo{
		creators: make(map[string]creators.Creator),
	}
}

// WithCreator registers id with the given access token and returns the repo.
func (r *FakeCreatorRepo) WithCreator(id, accessToken string) *FakeCreatorRepo {
	_ = r.Upsert(context.Background(), &creators.Creator{ID: id, AccessToken: accessToken})
	return r
}

func (r *FakeCreatorRepo) AccessCredential(ctx context.Context, creatorID string) (string, error) {
	r.lock.Lock()
	r.Lookups++
	r.lock.Unlock()

	c, err := r.Get(ctx, creatorID)
	if err != nil {
		return "", err
	}
	return c.AccessToken, nil
}

func (r *FakeCreatorRepo) Get(_ context.Context, creatorID string) (*creators.Creator, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	c, ok := r.creators[creators.NormalizeID(creatorID)]
	if !ok {
		return nil, apperrors.ErrCreatorNotFound
	}
	return &c, nil
}

func (r *FakeCreatorRepo) Upsert(_ context.Context, creator *creators.Creator) error {
	if creator == nil || creator.ID == "" {
		return errors.New("creator id is required")
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.Err != nil {
		return r.Err
	}
	c := *creator
	c.UpdatedAt = time.Now()
	if c.RegisteredAt.IsZero() {
		c.RegisteredAt = c.UpdatedAt
	}
	r.creators[creators.NormalizeID(creator.ID)] = c
	return nil
}

func (r *FakeCreatorRepo) Delete(_ context.Context, creatorID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.Err != nil {
		return r.Err
	}
	delete(r.creators, creators.NormalizeID(creatorID))
	return nil
}
