package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type OrderUsecase struct {
	tx          repo.TransactionManager
	orderRepo   repo.OrderRepository
	addressRepo repo.AddressRepository
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orderRepo repo.OrderRepository,
	addressRepo repo.AddressRepository,
) *OrderUsecase {
	return &OrderUsecase{
		tx:          tx,
		orderRepo:   orderRepo,
		addressRepo: addressRepo,
	}
}

type PlaceOrderInput struct {
	AddressID      int64
	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID         int64             `json:"id"`
	Status     string            `json:"status"`
	TotalPrice int64             `json:"total_price"`
	CreatedAt  time.Time         `json:"created_at"`
	Items      []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Orders []OrderOutput `json:"orders"`
}

// PlaceOrder はカートから注文を確定する（チェックアウト）。
// 在庫減算・注文作成・カートクリアは1トランザクションで行い、
// 途中で失敗したら全部巻き戻る（減らした在庫が残らない）。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, ownerEmail string, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 || ownerEmail == "" {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}

	//配送先の存在確認＋所有チェック
	addr, err := u.addressRepo.FindByID(ctx, in.AddressID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "address not found")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if addr.UserID != userID {
		//他人の住所
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	var out OrderOutput

	//注文処理はトランザクション
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, ownerEmail, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			out, err = buildOrderOutput(ctx, r.Orders(), existing)
			return err
		}

		cartItems, err := r.Carts().ListByOwner(ctx, ownerEmail)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		//在庫を確定時に再チェックして減らす
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		var total int64 = 0
		now := time.Now()

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}

			ok, err := r.Products().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "out of stock")
			}

			//スナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   p.Price,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})

			total += p.Price * ci.Quantity
		}

		order, err := r.Orders().CreateWithItems(ctx, model.Order{
			UserID:         userID,
			OwnerEmail:     ownerEmail,
			AddressID:      in.AddressID,
			Status:         model.OrderStatusPending,
			TotalPrice:     total,
			IdempotencyKey: key,
			CreatedAt:      now,
			UpdatedAt:      now,
		}, orderItems)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//確定後はカートを空にする
		if err := r.Carts().Clear(ctx, ownerEmail); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out, err = buildOrderOutput(ctx, r.Orders(), order)
		return err
	})

	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return OrderOutput{}, err
		}
		//同時に同じキーが入った等の競合はもう一回探して同じ結果を返す
		ex, found, err2 := u.orderRepo.FindByIdempotencyKey(ctx, ownerEmail, key)
		if err2 == nil && found {
			return buildOrderOutput(ctx, u.orderRepo, ex)
		}
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return out, nil
}

// ListMyOrders は自分の注文一覧（新しい順）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, ownerEmail string) (OrderListOutput, error) {
	if ownerEmail == "" {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := u.orderRepo.ListByOwner(ctx, ownerEmail)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := OrderListOutput{Orders: make([]OrderOutput, 0, len(orders))}
	for _, o := range orders {
		oo, err := buildOrderOutput(ctx, u.orderRepo, o)
		if err != nil {
			return OrderListOutput{}, err
		}
		out.Orders = append(out.Orders, oo)
	}

	return out, nil
}

func buildOrderOutput(ctx context.Context, orders repo.OrderRepository, o model.Order) (OrderOutput, error) {
	items, err := orders.ListItemsByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:         o.ID,
		Status:     string(o.Status),
		TotalPrice: o.TotalPrice,
		CreatedAt:  o.CreatedAt,
		Items:      outItems,
	}, nil
}
