package orm

import (
	"context"

	"gorm.io/gorm"

	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/repositories"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

var _ repositories.CategoryRepository = (*CategoryRepository)(nil)

func (r *CategoryRepository) Create(ctx context.Context, category *entities.Category) (*entities.Category, error) {
	m := CategoryModel{Name: category.Name, Description: category.Description}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, translate(err)
	}
	return categoryToEntity(&m), nil
}

func (r *CategoryRepository) FindAll(ctx context.Context) ([]*entities.Category, error) {
	var models []CategoryModel
	if err := r.db.WithContext(ctx).Order("name").Find(&models).Error; err != nil {
		return nil, translate(err)
	}
	return categoriesToEntities(models), nil
}

func (r *CategoryRepository) FindByIds(ctx context.Context, ids []uint) ([]*entities.Category, error) {
	if len(ids) == 0 {
		return []*entities.Category{}, nil
	}
	var models []CategoryModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name").Find(&models).Error; err != nil {
		return nil, translate(err)
	}
	return categoriesToEntities(models), nil
}

func categoriesToEntities(models []CategoryModel) []*entities.Category {
	categories := make([]*entities.Category, 0, len(models))
	for i := range models {
		categories = append(categories, categoryToEntity(&models[i]))
	}
	return categories
}
