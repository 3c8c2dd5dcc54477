package orm

import (
	"context"

	"gorm.io/gorm"

	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/repositories"
)

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

var _ repositories.LikeRepository = (*LikeRepository)(nil)

// Create relies on the (post_id, user_id) unique index to reject a second
// like, so concurrent requests cannot both succeed.
func (r *LikeRepository) Create(ctx context.Context, like *entities.Like) (*entities.Like, error) {
	m := LikeModel{PostId: like.PostId, UserId: like.UserId, CreatedAt: like.CreatedAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &entities.Like{Id: m.Id, PostId: m.PostId, UserId: m.UserId, CreatedAt: m.CreatedAt}, nil
}

func (r *LikeRepository) Exists(ctx context.Context, postID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LikeModel{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (r *LikeRepository) CountByPost(ctx context.Context, postID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&LikeModel{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	return count, nil
}
