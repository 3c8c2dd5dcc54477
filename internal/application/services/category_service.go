package services

import (
	"context"
	"errors"
	"fmt"

	"blog-service/internal/application/command"
	"blog-service/internal/application/interfaces"
	"blog-service/internal/application/mapper"
	"blog-service/internal/application/query"
	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/repositories"
)

type CategoryService struct {
	categoryRepo repositories.CategoryRepository
}

func NewCategoryService(categoryRepo repositories.CategoryRepository) interfaces.CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

func (s *CategoryService) ListCategories(ctx context.Context) (*query.CategoryQueryListResult, error) {
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return &query.CategoryQueryListResult{Result: mapper.NewCategoryResults(categories)}, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, createCommand *command.CreateCategoryCommand) (*command.CreateCategoryCommandResult, error) {
	category := entities.NewCategory(createCommand.Name, createCommand.Description)
	if fields := category.Validate(); !fields.OK() {
		return nil, newValidationError(fields)
	}

	created, err := s.categoryRepo.Create(ctx, category)
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, newValidationError(entities.FieldErrors{"name": {"Category with this Name already exists."}})
	}
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &command.CreateCategoryCommandResult{Result: mapper.NewCategoryResultFromEntity(created)}, nil
}
