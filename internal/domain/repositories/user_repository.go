package repositories

import (
	"context"

	"blog-service/internal/domain/entities"
)

type UserRepository interface {
	// CreateWithProfile stores the user and its profile in one transaction.
	CreateWithProfile(ctx context.Context, user *entities.ValidatedUser) (*entities.User, *entities.Profile, error)
	FindById(ctx context.Context, id uint) (*entities.User, error)
	FindByUsername(ctx context.Context, username string) (*entities.User, error)
	FindByEmail(ctx context.Context, email string) ([]*entities.User, error)
	UpdatePassword(ctx context.Context, user *entities.User) error
	// UpdateAccount persists the account fields and the profile together.
	UpdateAccount(ctx context.Context, user *entities.ValidatedUser, profile *entities.Profile) error
	Delete(ctx context.Context, id uint) error
}

type ProfileRepository interface {
	FindByUserId(ctx context.Context, userID uint) (*entities.Profile, error)
}
