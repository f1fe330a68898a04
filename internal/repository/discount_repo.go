package repository

import (
	"context"

	"hotelbooking/internal/domain"

	"gorm.io/gorm"
)

type DiscountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

func (r *DiscountRepository) GetDiscount(ctx context.Context, code string) (*domain.Discount, error) {
	var d domain.Discount
	if err := r.db.WithContext(ctx).Where("id = ?", code).First(&d).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}
