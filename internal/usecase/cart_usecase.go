package usecase

import (
	"context"
	"errors"
	"net/http"

	repo "storefront/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// サーバー側カートが正で、クライアントは丸ごと差し替え（wholesale replace）で同期します。
type CartUsecase struct {
	cartRepo    repo.CartRepository
	productRepo repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

type CartItemResponse struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
}

type ReplaceCartInput struct {
	Items []CartItemResponse
}

// GetCart はカート取得。カートが無ければ空を返す（404にしない）
func (u *CartUsecase) GetCart(ctx context.Context, ownerEmail string) (CartResponse, error) {
	if ownerEmail == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	items, err := u.cartRepo.ListByOwner(ctx, ownerEmail)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := CartResponse{Items: make([]CartItemResponse, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, CartItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	return out, nil
}

// ReplaceCart は明細の丸ごと差し替え。
// 数量1未満・重複product_id・存在しない/非公開商品は400。
func (u *CartUsecase) ReplaceCart(ctx context.Context, ownerEmail string, in ReplaceCartInput) (CartResponse, error) {
	if ownerEmail == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	seen := make(map[int64]struct{}, len(in.Items))
	inputs := make([]repo.CartItemInput, 0, len(in.Items))

	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity < 1 {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
		if _, dup := seen[it.ProductID]; dup {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "duplicate product_id")
		}
		seen[it.ProductID] = struct{}{}

		//商品チェック（公開のみ）
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product")
		}
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product")
		}

		inputs = append(inputs, repo.CartItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	stored, err := u.cartRepo.ReplaceItems(ctx, ownerEmail, inputs)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := CartResponse{Items: make([]CartItemResponse, 0, len(stored))}
	for _, it := range stored {
		out.Items = append(out.Items, CartItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
		})
	}

	return out, nil
}

// ClearCart は空にする。カートが無くても200
func (u *CartUsecase) ClearCart(ctx context.Context, ownerEmail string) (CartResponse, error) {
	if ownerEmail == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if err := u.cartRepo.Clear(ctx, ownerEmail); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return CartResponse{Items: []CartItemResponse{}}, nil
}
