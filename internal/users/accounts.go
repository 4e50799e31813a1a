package users

import (
	"context"
	"errors"

	"usermgmt/internal/auth"
)

// Accounts adapts a Store to auth.Accounts.
type Accounts struct {
	Store Store
}

func (a Accounts) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return toAccount(a.Store.GetByEmail(ctx, email))
}

func (a Accounts) FindByID(ctx context.Context, id int64) (*auth.Account, error) {
	return toAccount(a.Store.Get(ctx, id))
}

func toAccount(u *User, err error) (*auth.Account, error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrAccountNotFound
		}
		return nil, err
	}
	return &auth.Account{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Roles:        u.Roles,
		Active:       u.IsActive,
	}, nil
}
