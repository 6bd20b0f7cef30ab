package patients

import "context"

// Repository persists patient profiles and their medical backgrounds.
type Repository interface {
	Create(ctx context.Context, p *Patient) (*Patient, error)
	GetByID(ctx context.Context, id int) (*Patient, error)
	GetByUserID(ctx context.Context, userID int) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, filter ListFilter) ([]*Patient, error)

	GetBackground(ctx context.Context, patientID int) (*Background, error)
	UpsertBackground(ctx context.Context, b *Background) error
}

// ListFilter narrows a patient listing.
type ListFilter struct {
	Search string // matches cedula, email or name of the account
	Limit  int
	Offset int
}
