package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type ProductListQuery struct {
	Page  int
	Limit int
	Q     string
	Sort  string
}

type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, productID int64) (model.Product, error)
	//在庫減算（足りないならfalse）
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)
}
