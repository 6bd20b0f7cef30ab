package users

import "context"

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, req *CreateUserRequest, passwordHash string) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByCedula(ctx context.Context, cedula string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	List(ctx context.Context, filter ListFilter) ([]*User, error)
}

// ListFilter narrows a user listing.
type ListFilter struct {
	Role   int // 0 means any role
	Active *bool
	Search string // matches cedula, email or name
	Limit  int
	Offset int
}
