package service

import (
	"context"

	"github.com/earnhub/backend/internal/model"
)

type UserService struct {
	store Store
}

func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

type TelegramUser struct {
	ID           int64
	Username     *string
	FirstName    *string
	LastName     *string
	LanguageCode *string
}

// GetOrCreateUser registers the user on first contact and refreshes the
// profile afterwards. The bool reports whether the account was just created.
func (s *UserService) GetOrCreateUser(ctx context.Context, tu TelegramUser) (*model.User, bool, error) {
	user := &model.User{
		ID:           tu.ID,
		Username:     nonEmpty(tu.Username),
		FirstName:    nonEmpty(tu.FirstName),
		LastName:     nonEmpty(tu.LastName),
		LanguageCode: nonEmpty(tu.LanguageCode),
	}
	created, err := s.store.UpsertUser(ctx, user)
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
