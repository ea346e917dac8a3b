package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type OrderRepository interface {
	//注文と明細を同一トランザクションで作成する
	CreateWithItems(ctx context.Context, order model.Order, items []model.OrderItem) (model.Order, error)
	//オーナーの注文を新しい順に取得する
	ListByOwner(ctx context.Context, ownerEmail string) ([]model.Order, error)
	ListItemsByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 同じキーなら同じ結果
	FindByIdempotencyKey(ctx context.Context, ownerEmail string, key string) (model.Order, bool, error)
}
