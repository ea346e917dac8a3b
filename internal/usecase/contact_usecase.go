package usecase

import (
	"context"
	"errors"
	"net/http"

	repo "storefront/internal/repository"
)

// ContactUsecase はサポート窓口の宛先解決。
// チャットの宛先として最初の管理者アカウントを返す。
type ContactUsecase struct {
	userRepo repo.UserRepository
}

func NewContactUsecase(userRepo repo.UserRepository) *ContactUsecase {
	return &ContactUsecase{userRepo: userRepo}
}

type AdminContactOutput struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AdminContact は最初の管理者を返す。居なければ404
func (u *ContactUsecase) AdminContact(ctx context.Context) (AdminContactOutput, error) {
	admin, err := u.userRepo.FindFirstAdmin(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return AdminContactOutput{}, NewHTTPError(http.StatusNotFound, "admin not found")
	}
	if err != nil {
		return AdminContactOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return AdminContactOutput{ID: admin.ID, Name: admin.Name}, nil
}
