package repositories

import (
	"context"

	"blog-service/internal/domain/entities"
)

// PostFilter narrows a post listing. Zero values disable a filter.
type PostFilter struct {
	CategoryId uint
	// MatchNone forces an empty result, e.g. for an unparsable category id.
	MatchNone bool
	Search    string
	Offset    int
	Limit     int
}

type PostRepository interface {
	Create(ctx context.Context, post *entities.ValidatedPost, categoryIDs []uint) (*entities.Post, error)
	Update(ctx context.Context, post *entities.ValidatedPost, categoryIDs []uint) (*entities.Post, error)
	Delete(ctx context.Context, id uint) error
	FindById(ctx context.Context, id uint) (*entities.Post, error)
	List(ctx context.Context, filter PostFilter) ([]*entities.Post, int64, error)
	Recent(ctx context.Context, limit int) ([]*entities.Post, error)
	MostLiked(ctx context.Context, limit int) ([]*entities.Post, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *entities.Category) (*entities.Category, error)
	FindAll(ctx context.Context) ([]*entities.Category, error)
	FindByIds(ctx context.Context, ids []uint) ([]*entities.Category, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *entities.Comment) (*entities.Comment, error)
	FindByPost(ctx context.Context, postID uint) ([]*entities.Comment, error)
}

type LikeRepository interface {
	// Create returns ErrDuplicate when the user already likes the post.
	Create(ctx context.Context, like *entities.Like) (*entities.Like, error)
	Exists(ctx context.Context, postID, userID uint) (bool, error)
	CountByPost(ctx context.Context, postID uint) (int64, error)
}

type IdempotencyRepository interface {
	FindByKey(ctx context.Context, key string) (*entities.IdempotencyRecord, error)
	Create(ctx context.Context, record *entities.IdempotencyRecord) (*entities.IdempotencyRecord, error)
}
