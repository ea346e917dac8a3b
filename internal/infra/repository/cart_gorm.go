package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	domainrepo "storefront/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) domainrepo.CartRepository {
	return &cartGormRepository{db: db}
}

// オーナーのカート明細を取得。カート自体が無ければ空を返す
func (r *cartGormRepository) ListByOwner(ctx context.Context, ownerEmail string) ([]model.CartItem, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("owner_email = ?", ownerEmail).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []model.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	var items []model.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

// 明細の丸ごと差し替え（wholesale replace）。
// カートが無ければ作り、既存明細を全削除して入れ直す。
func (r *cartGormRepository) ReplaceItems(ctx context.Context, ownerEmail string, items []domainrepo.CartItemInput) ([]model.CartItem, error) {
	var out []model.CartItem

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := getOrCreateByOwner(tx, ownerEmail)
		if err != nil {
			return err
		}

		//既存明細を全削除
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		if len(items) == 0 {
			out = []model.CartItem{}
			return nil
		}

		now := time.Now()
		rows := make([]model.CartItem, 0, len(items))
		for _, in := range items {
			rows = append(rows, model.CartItem{
				CartID:    cart.ID,
				ProductID: in.ProductID,
				Quantity:  in.Quantity,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}

		if err := tx.Create(&rows).Error; err != nil {
			return err
		}

		//updated_atを進める
		if err := tx.Model(&model.Cart{}).
			Where("id = ?", cart.ID).
			Update("updated_at", now).Error; err != nil {
			return err
		}

		out = rows
		return nil
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// 明細を全削除。カートが無くても成功扱い
func (r *cartGormRepository) Clear(ctx context.Context, ownerEmail string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart

		err := tx.Where("owner_email = ?", ownerEmail).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error
	})
}

// オーナーのカートを取得し、無ければ作成（upsert）
func getOrCreateByOwner(tx *gorm.DB, ownerEmail string) (model.Cart, error) {
	var cart model.Cart

	findErr := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_email = ?", ownerEmail).
		First(&cart).Error

	if findErr == nil {
		return cart, nil
	}
	if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return model.Cart{}, findErr
	}

	now := time.Now()
	newCart := model.Cart{
		OwnerEmail: ownerEmail,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := tx.Create(&newCart).Error; err != nil {
		//同時作成に負けた（unique violation）場合はもう一回探す
		if isUniqueViolation(err) {
			retryErr := tx.Where("owner_email = ?", ownerEmail).First(&cart).Error
			if retryErr == nil {
				return cart, nil
			}
		}
		return model.Cart{}, err
	}

	return newCart, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
