package payments

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/oralflow/oralflow-api/internal/appointments"
	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/storage"
)

// Appointments is the slice of the appointment layer the service needs to
// decide whether an appointment can take money.
type Appointments interface {
	GetByID(ctx context.Context, id int) (*appointments.Appointment, error)
}

// ObjectStore is the slice of the storage layer receipts need.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
}

// Service enforces payment rules on top of the repository.
type Service struct {
	repo  Repository
	appts Appointments
	store ObjectStore
}

// NewService wires the payment rules. store may be nil when no object
// store is configured; receipt uploads are then rejected.
func NewService(repo Repository, appts Appointments, store ObjectStore) *Service {
	return &Service{repo: repo, appts: appts, store: store}
}

// Record registers a payment for an appointment. Only confirmed or
// completed appointments accept payments.
func (s *Service) Record(ctx context.Context, req CreatePaymentRequest, recordedBy int) (*Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a, err := s.appts.GetByID(ctx, req.AppointmentID)
	if err != nil {
		return nil, fmt.Errorf("payments: load appointment: %w", err)
	}
	if a.Status != appointments.StatusConfirmed && a.Status != appointments.StatusCompleted {
		return nil, ErrAppointmentNotPayable
	}
	// Receipt keys are minted by UploadReceipt; a transfer must point at
	// an object uploaded for this very appointment.
	if req.Method == MethodTransfer && !strings.HasPrefix(req.ReceiptKey, fmt.Sprintf("receipts/%d/", req.AppointmentID)) {
		return nil, fielderr.New("receipt_key", "The receipt must be uploaded for this appointment first.")
	}

	return s.repo.Create(ctx, &Payment{
		AppointmentID: req.AppointmentID,
		Method:        req.Method,
		AmountCents:   req.AmountCents,
		ReceiptKey:    req.ReceiptKey,
		Status:        StatusPaid,
		RecordedBy:    recordedBy,
	})
}

// UploadReceipt stores a transfer receipt and returns the object key to
// put on the payment. The key is derived here; clients never choose it.
func (s *Service) UploadReceipt(ctx context.Context, appointmentID int, fileName string, body io.Reader) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("payments: no object store configured")
	}
	a, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return "", fmt.Errorf("payments: load appointment: %w", err)
	}
	if a.Status != appointments.StatusConfirmed && a.Status != appointments.StatusCompleted {
		return "", ErrAppointmentNotPayable
	}

	ext := strings.ToLower(path.Ext(fileName))
	contentType, ok := receiptExtensions[ext]
	if !ok {
		return "", ErrReceiptType
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, MaxReceiptBytes+1))
	if err != nil {
		return "", fmt.Errorf("payments: read upload: %w", err)
	}
	if n > MaxReceiptBytes {
		return "", ErrReceiptTooLarge
	}

	key := storage.ReceiptKey(appointmentID, ext)
	if err := s.store.Put(ctx, key, contentType, &buf); err != nil {
		return "", err
	}
	return key, nil
}

// Refund marks a paid payment as refunded.
func (s *Service) Refund(ctx context.Context, paymentID int) (*Payment, error) {
	return s.repo.MarkRefunded(ctx, paymentID)
}

// ForAppointment returns the payment attached to an appointment.
func (s *Service) ForAppointment(ctx context.Context, appointmentID int) (*Payment, error) {
	return s.repo.GetByAppointment(ctx, appointmentID)
}

// List returns payments matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Payment, error) {
	return s.repo.List(ctx, filter)
}
