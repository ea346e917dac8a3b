package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartItemInput struct {
	ProductID int64
	Quantity  int64
}

type CartRepository interface {
	//オーナーのカート明細を取得する。カートが無ければ空スライスを返す（ErrNotFoundにしない）
	ListByOwner(ctx context.Context, ownerEmail string) ([]model.CartItem, error)
	//明細を丸ごと差し替える（カートが無ければ作る）
	ReplaceItems(ctx context.Context, ownerEmail string, items []CartItemInput) ([]model.CartItem, error)
	//明細を全削除する。カートが無くてもエラーにしない
	Clear(ctx context.Context, ownerEmail string) error
}
