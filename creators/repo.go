package creators

import "context"

// Repo stores creator records and their sponsor-listing credentials.
// AccessCredential and Get return errors.ErrCreatorNotFound for unknown creators.
type Repo interface {
	AccessCredential(ctx context.Context, creatorID string) (string, error)
	Get(ctx context.Context, creatorID string) (*Creator, error)
	Upsert(ctx context.Context, creator *Creator) error
	Delete(ctx context.Context, creatorID string) error
}
