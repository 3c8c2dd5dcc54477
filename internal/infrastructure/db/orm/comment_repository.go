package orm

import (
	"context"

	"gorm.io/gorm"

	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/repositories"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

var _ repositories.CommentRepository = (*CommentRepository)(nil)

func (r *CommentRepository) Create(ctx context.Context, comment *entities.Comment) (*entities.Comment, error) {
	m := CommentModel{
		PostId:    comment.PostId,
		AuthorId:  comment.AuthorId,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, translate(err)
	}
	return commentToEntity(&m), nil
}

// FindByPost returns a post's comments oldest first.
func (r *CommentRepository) FindByPost(ctx context.Context, postID uint) ([]*entities.Comment, error) {
	var models []CommentModel
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at").Order("id").
		Find(&models).Error
	if err != nil {
		return nil, translate(err)
	}
	comments := make([]*entities.Comment, 0, len(models))
	for i := range models {
		comments = append(comments, commentToEntity(&models[i]))
	}
	return comments, nil
}
