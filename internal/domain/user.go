package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the authoring identity referenced by submissions. The core
// only ever consumes its id; the rest exists for the thin auth surface.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateUserParams holds parameters for user creation.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
}

// UserRepository is the storage contract for users. Password
// verification lives behind the repository so hashes never cross the
// domain boundary.
type UserRepository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
	VerifyUserPassword(ctx context.Context, email, password string) (*User, error)
}
