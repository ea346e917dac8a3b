package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 配送先住所の保存・取得の窓口
type AddressRepository interface {
	//住所を新規作成し、IDが埋まったものを返す
	Create(ctx context.Context, address model.Address) (model.Address, error)
	//ユーザーが持つ住所一覧を返す
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)
	//住所IDから1件取得。無ければErrNotFound
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
}
