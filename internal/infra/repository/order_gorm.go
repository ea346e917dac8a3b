package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	domainrepo "storefront/internal/repository"

	"gorm.io/gorm"
)

type orderGormRepository struct {
	db *gorm.DB
}

// DI
func NewOrderGormRepository(db *gorm.DB) domainrepo.OrderRepository {
	return &orderGormRepository{db: db}
}

// 注文＋明細を同一トランザクションで作成
func (r *orderGormRepository) CreateWithItems(ctx context.Context, order model.Order, items []model.OrderItem) (model.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}

		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// オーナーの注文を新しい順で取得
func (r *orderGormRepository) ListByOwner(ctx context.Context, ownerEmail string) ([]model.Order, error) {
	var orders []model.Order

	if err := r.db.WithContext(ctx).
		Where("owner_email = ?", ownerEmail).
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		return nil, err
	}

	return orders, nil
}

// 注文の明細一覧
func (r *orderGormRepository) ListItemsByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

// idempotency keyで既存注文を探す
func (r *orderGormRepository) FindByIdempotencyKey(ctx context.Context, ownerEmail string, key string) (model.Order, bool, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Where("owner_email = ? AND idempotency_key = ?", ownerEmail, key).
		First(&order).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}

	return order, true, nil
}
