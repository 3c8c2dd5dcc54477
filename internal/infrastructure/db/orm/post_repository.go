package orm

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/repositories"
)

const likeCountColumn = "(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count"

type PostRepository struct {
	db        *gorm.DB
	coverHook *ImageHook
}

func NewPostRepository(db *gorm.DB, coverHook *ImageHook) *PostRepository {
	return &PostRepository{db: db, coverHook: coverHook}
}

var _ repositories.PostRepository = (*PostRepository)(nil)

func (r *PostRepository) Create(ctx context.Context, post *entities.ValidatedPost, categoryIDs []uint) (*entities.Post, error) {
	postModel := postToModel(post.GetPost())
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories, err := loadCategories(tx, categoryIDs)
		if err != nil {
			return err
		}
		postModel.Categories = categories
		return tx.Omit("Categories.*").Create(&postModel).Error
	})
	if err != nil {
		return nil, translate(err)
	}

	r.afterSave(&postModel)
	return r.FindById(ctx, postModel.Id)
}

func (r *PostRepository) Update(ctx context.Context, post *entities.ValidatedPost, categoryIDs []uint) (*entities.Post, error) {
	postModel := postToModel(post.GetPost())
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories, err := loadCategories(tx, categoryIDs)
		if err != nil {
			return err
		}
		res := tx.Model(&PostModel{}).Where("id = ?", postModel.Id).Updates(map[string]interface{}{
			"title":        postModel.Title,
			"content":      postModel.Content,
			"author_id":    postModel.AuthorId,
			"is_published": postModel.IsPublished,
			"cover_image":  postModel.CoverImage,
			"updated_at":   postModel.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		association := tx.Model(&postModel).Omit("Categories.*").Association("Categories")
		if len(categories) == 0 {
			return association.Clear()
		}
		return association.Replace(categories)
	})
	if err != nil {
		return nil, translate(err)
	}

	r.afterSave(&postModel)
	return r.FindById(ctx, postModel.Id)
}

// Delete removes the post with its comments, likes and category links.
func (r *PostRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&LikeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&CommentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM post_categories WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&PostModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err)
}

func (r *PostRepository) FindById(ctx context.Context, id uint) (*entities.Post, error) {
	var postModel PostModel
	err := r.withRelations(r.db.WithContext(ctx)).
		Select("posts.*, "+likeCountColumn).
		Where("posts.id = ?", id).
		First(&postModel).Error
	if err != nil {
		return nil, translate(err)
	}
	return postToEntity(&postModel), nil
}

func (r *PostRepository) List(ctx context.Context, filter repositories.PostFilter) ([]*entities.Post, int64, error) {
	if filter.MatchNone {
		return []*entities.Post{}, 0, nil
	}

	query := r.db.WithContext(ctx).Model(&PostModel{})
	if filter.CategoryId != 0 {
		query = query.Where("posts.id IN (?)",
			r.db.Table("post_categories").Select("post_id").Where("category_id = ?", filter.CategoryId))
	}
	if search := filter.Search; search != "" {
		query = query.Where("LOWER(posts.title) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(search))+"%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var models []PostModel
	err := r.withRelations(query).
		Select("posts.*, " + likeCountColumn).
		Order("posts.created_at DESC").Order("posts.id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return postsToEntities(models), total, nil
}

func (r *PostRepository) Recent(ctx context.Context, limit int) ([]*entities.Post, error) {
	var models []PostModel
	err := r.withRelations(r.db.WithContext(ctx)).
		Select("posts.*, " + likeCountColumn).
		Order("posts.created_at DESC").Order("posts.id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, translate(err)
	}
	return postsToEntities(models), nil
}

// MostLiked orders by like count only; posts with equal counts come back in
// whatever order the database produces.
func (r *PostRepository) MostLiked(ctx context.Context, limit int) ([]*entities.Post, error) {
	var models []PostModel
	err := r.withRelations(r.db.WithContext(ctx)).
		Select("posts.*, " + likeCountColumn).
		Order("like_count DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, translate(err)
	}
	return postsToEntities(models), nil
}

func (r *PostRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Categories", func(db *gorm.DB) *gorm.DB {
		return db.Order("categories.name")
	})
}

func (r *PostRepository) afterSave(m *PostModel) {
	if m.CoverImage != entities.DefaultCoverImage {
		r.coverHook.afterSave("post cover", m.CoverImage)
	}
}

func loadCategories(tx *gorm.DB, ids []uint) ([]CategoryModel, error) {
	categories := []CategoryModel{}
	if len(ids) == 0 {
		return categories, nil
	}
	if err := tx.Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func postsToEntities(models []PostModel) []*entities.Post {
	posts := make([]*entities.Post, 0, len(models))
	for i := range models {
		posts = append(posts, postToEntity(&models[i]))
	}
	return posts
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
