package usecase

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type AddressUsecase struct {
	addressRepo repo.AddressRepository
}

// DI
func NewAddressUsecase(addressRepo repo.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addressRepo: addressRepo}
}

type CreateAddressInput struct {
	PostalCode string `json:"postal_code"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
}

type AddressListOutput struct {
	Addresses []model.Address `json:"addresses"`
}

// Create は配送先住所を登録する
func (u *AddressUsecase) Create(ctx context.Context, userID int64, in CreateAddressInput) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//必須項目チェック
	if strings.TrimSpace(in.PostalCode) == "" ||
		strings.TrimSpace(in.Prefecture) == "" ||
		strings.TrimSpace(in.City) == "" ||
		strings.TrimSpace(in.Line1) == "" ||
		strings.TrimSpace(in.Name) == "" {
		return model.Address{}, NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	created, err := u.addressRepo.Create(ctx, model.Address{
		UserID:     userID,
		PostalCode: strings.TrimSpace(in.PostalCode),
		Prefecture: strings.TrimSpace(in.Prefecture),
		City:       strings.TrimSpace(in.City),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
	})
	if err != nil {
		return model.Address{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return created, nil
}

// List は自分の住所一覧
func (u *AddressUsecase) List(ctx context.Context, userID int64) (AddressListOutput, error) {
	if userID <= 0 {
		return AddressListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	list, err := u.addressRepo.ListByUserID(ctx, userID)
	if err != nil {
		return AddressListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if list == nil {
		list = []model.Address{}
	}

	return AddressListOutput{Addresses: list}, nil
}
