package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type CartCartRepoMock struct{ mock.Mock }

func (m *CartCartRepoMock) ListByOwner(ctx context.Context, ownerEmail string) ([]model.CartItem, error) {
	args := m.Called(ctx, ownerEmail)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartCartRepoMock) ReplaceItems(ctx context.Context, ownerEmail string, items []repo.CartItemInput) ([]model.CartItem, error) {
	args := m.Called(ctx, ownerEmail, items)
	stored, _ := args.Get(0).([]model.CartItem)
	return stored, args.Error(1)
}

func (m *CartCartRepoMock) Clear(ctx context.Context, ownerEmail string) error {
	args := m.Called(ctx, ownerEmail)
	return args.Error(0)
}

type CartProductRepoMock struct{ mock.Mock }

func (m *CartProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	panic("not used in CartUsecase tests")
}

func (m *CartProductRepoMock) FindByID(ctx context.Context, productID int64) (model.Product, error) {
	args := m.Called(ctx, productID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *CartProductRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	panic("not used in CartUsecase tests")
}

// =====================
// GetCart
// =====================

func TestCartUsecase_GetCart_EmptyCartIsNot404(t *testing.T) {
	cartRepo := new(CartCartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(CartProductRepoMock))

	cartRepo.On("ListByOwner", mock.Anything, "a@b.com").Return([]model.CartItem{}, nil)

	out, err := uc.GetCart(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.NotNil(t, out.Items)
	assert.Empty(t, out.Items)
}

func TestCartUsecase_GetCart_Unauthenticated(t *testing.T) {
	uc := usecase.NewCartUsecase(new(CartCartRepoMock), new(CartProductRepoMock))

	_, err := uc.GetCart(context.Background(), "")
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

// =====================
// ReplaceCart
// =====================

func TestCartUsecase_ReplaceCart_InvalidQuantity(t *testing.T) {
	uc := usecase.NewCartUsecase(new(CartCartRepoMock), new(CartProductRepoMock))

	_, err := uc.ReplaceCart(context.Background(), "a@b.com", usecase.ReplaceCartInput{
		Items: []usecase.CartItemResponse{{ProductID: 1, Quantity: 0}},
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestCartUsecase_ReplaceCart_DuplicateProduct(t *testing.T) {
	pRepo := new(CartProductRepoMock)
	uc := usecase.NewCartUsecase(new(CartCartRepoMock), pRepo)

	pRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, IsActive: true}, nil)

	_, err := uc.ReplaceCart(context.Background(), "a@b.com", usecase.ReplaceCartInput{
		Items: []usecase.CartItemResponse{
			{ProductID: 1, Quantity: 1},
			{ProductID: 1, Quantity: 2},
		},
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestCartUsecase_ReplaceCart_UnknownProduct(t *testing.T) {
	pRepo := new(CartProductRepoMock)
	uc := usecase.NewCartUsecase(new(CartCartRepoMock), pRepo)

	pRepo.On("FindByID", mock.Anything, int64(9)).Return(model.Product{}, repo.ErrNotFound)

	_, err := uc.ReplaceCart(context.Background(), "a@b.com", usecase.ReplaceCartInput{
		Items: []usecase.CartItemResponse{{ProductID: 9, Quantity: 1}},
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestCartUsecase_ReplaceCart_InactiveProduct(t *testing.T) {
	pRepo := new(CartProductRepoMock)
	uc := usecase.NewCartUsecase(new(CartCartRepoMock), pRepo)

	pRepo.On("FindByID", mock.Anything, int64(3)).Return(model.Product{ID: 3, IsActive: false}, nil)

	_, err := uc.ReplaceCart(context.Background(), "a@b.com", usecase.ReplaceCartInput{
		Items: []usecase.CartItemResponse{{ProductID: 3, Quantity: 1}},
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestCartUsecase_ReplaceCart_Success(t *testing.T) {
	cartRepo := new(CartCartRepoMock)
	pRepo := new(CartProductRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, pRepo)

	pRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, IsActive: true}, nil)
	pRepo.On("FindByID", mock.Anything, int64(2)).Return(model.Product{ID: 2, IsActive: true}, nil)

	wantInputs := []repo.CartItemInput{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}
	cartRepo.On("ReplaceItems", mock.Anything, "a@b.com", wantInputs).Return([]model.CartItem{
		{ID: 10, CartID: 1, ProductID: 1, Quantity: 2},
		{ID: 11, CartID: 1, ProductID: 2, Quantity: 1},
	}, nil)

	out, err := uc.ReplaceCart(context.Background(), "a@b.com", usecase.ReplaceCartInput{
		Items: []usecase.CartItemResponse{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []usecase.CartItemResponse{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}, out.Items)
	cartRepo.AssertExpectations(t)
}

func TestCartUsecase_ReplaceCart_EmptyListClears(t *testing.T) {
	cartRepo := new(CartCartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(CartProductRepoMock))

	cartRepo.On("ReplaceItems", mock.Anything, "a@b.com", []repo.CartItemInput{}).
		Return([]model.CartItem{}, nil)

	out, err := uc.ReplaceCart(context.Background(), "a@b.com", usecase.ReplaceCartInput{
		Items: []usecase.CartItemResponse{},
	})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
}

// =====================
// ClearCart
// =====================

func TestCartUsecase_ClearCart_Success(t *testing.T) {
	cartRepo := new(CartCartRepoMock)
	uc := usecase.NewCartUsecase(cartRepo, new(CartProductRepoMock))

	cartRepo.On("Clear", mock.Anything, "a@b.com").Return(nil)

	out, err := uc.ClearCart(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.NotNil(t, out.Items)
}
