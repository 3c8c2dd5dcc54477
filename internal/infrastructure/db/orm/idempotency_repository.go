package orm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"blog-service/internal/domain/entities"
	"blog-service/internal/domain/repositories"
)

type IdempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

var _ repositories.IdempotencyRepository = (*IdempotencyRepository)(nil)

// FindByKey returns nil, nil when no record exists.
func (r *IdempotencyRepository) FindByKey(ctx context.Context, key string) (*entities.IdempotencyRecord, error) {
	var m IdempotencyRecord
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate(err)
	}
	return &entities.IdempotencyRecord{
		Id:         m.Id,
		Key:        m.Key,
		Request:    m.Request,
		Response:   m.Response,
		StatusCode: m.StatusCode,
		CreatedAt:  m.CreatedAt,
	}, nil
}

func (r *IdempotencyRepository) Create(ctx context.Context, record *entities.IdempotencyRecord) (*entities.IdempotencyRecord, error) {
	m := IdempotencyRecord{
		Id:         record.Id,
		Key:        record.Key,
		Request:    record.Request,
		Response:   record.Response,
		StatusCode: record.StatusCode,
		CreatedAt:  record.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, translate(err)
	}
	return record, nil
}
