package user

import (
	"context"

	"github.com/rpggio/teamwork/internal/query"
)

// Repository provides persistence for users and their API keys.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, desc query.Descriptor) ([]User, error)
	StoreAPIKey(ctx context.Context, userID, keyHash string) error
	ResolveAPIKey(ctx context.Context, keyHash string) (*User, error)
}
