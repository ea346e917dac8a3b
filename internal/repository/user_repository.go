package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。見つからなければ (nil, nil)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//最初の管理者アカウントを1件取得する（/api/contact/admin用）
	FindFirstAdmin(ctx context.Context) (*model.User, error)
}
