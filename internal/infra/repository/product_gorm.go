package repository

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	domainrepo "storefront/internal/repository"

	"gorm.io/gorm"
)

type productGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) domainrepo.ProductRepository {
	return &productGormRepository{db: db}
}

// 公開商品の一覧取得（is_active=trueのみ）
func (r *productGormRepository) ListPublic(ctx context.Context, q domainrepo.ProductListQuery) ([]model.Product, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("is_active = ?", true)

	if kw := strings.TrimSpace(q.Q); kw != "" {
		base = base.Where("name ILIKE ?", "%"+kw+"%")
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch q.Sort {
	case "price_asc":
		base = base.Order("price asc")
	case "price_desc":
		base = base.Order("price desc")
	default:
		base = base.Order("created_at desc")
	}

	var items []model.Product
	offset := (q.Page - 1) * q.Limit

	if err := base.Offset(offset).Limit(q.Limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// IDで商品を1件取得
func (r *productGormRepository) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	var p model.Product

	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&p).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, domainrepo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}

	return p, nil
}

// 在庫減算。条件付きUPDATEで足りない場合は0行更新になる
func (r *productGormRepository) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}
