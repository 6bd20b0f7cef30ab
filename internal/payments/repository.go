package payments

import "context"

// Repository persists payments.
type Repository interface {
	Create(ctx context.Context, p *Payment) (*Payment, error)
	GetByAppointment(ctx context.Context, appointmentID int) (*Payment, error)
	MarkRefunded(ctx context.Context, paymentID int) (*Payment, error)
	List(ctx context.Context, filter ListFilter) ([]*Payment, error)
}

// ListFilter narrows a payment listing.
type ListFilter struct {
	Status string
	Method string
	Limit  int
	Offset int
}
