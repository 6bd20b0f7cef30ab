package payments

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/oralflow/oralflow-api/internal/appointments"
	"github.com/oralflow/oralflow-api/internal/fielderr"
)

type memRepo struct {
	payments map[int]*Payment
	nextID   int
}

func newMemRepo() *memRepo {
	return &memRepo{payments: map[int]*Payment{}, nextID: 1}
}

func (m *memRepo) Create(_ context.Context, p *Payment) (*Payment, error) {
	for _, existing := range m.payments {
		if existing.AppointmentID == p.AppointmentID {
			return nil, ErrAlreadyPaid
		}
	}
	cp := *p
	cp.ID = m.nextID
	m.nextID++
	m.payments[cp.ID] = &cp
	return &cp, nil
}

func (m *memRepo) GetByAppointment(_ context.Context, appointmentID int) (*Payment, error) {
	for _, p := range m.payments {
		if p.AppointmentID == appointmentID {
			return p, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (m *memRepo) MarkRefunded(_ context.Context, paymentID int) (*Payment, error) {
	p, ok := m.payments[paymentID]
	if !ok || p.Status != StatusPaid {
		return nil, ErrNotRefundable
	}
	p.Status = StatusRefunded
	return p, nil
}

func (m *memRepo) List(_ context.Context, _ ListFilter) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out, nil
}

type fakeAppointments struct {
	byID map[int]*appointments.Appointment
}

func (f *fakeAppointments) GetByID(_ context.Context, id int) (*appointments.Appointment, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, appointments.ErrNotFound
	}
	return a, nil
}

// fakeStore records uploaded objects by key.
type fakeStore struct {
	objects map[string]string // key -> content type
}

func (f *fakeStore) Put(_ context.Context, key, contentType string, _ io.Reader) error {
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[key] = contentType
	return nil
}

func newTestService() (*Service, *memRepo, *fakeStore) {
	repo := newMemRepo()
	appts := &fakeAppointments{byID: map[int]*appointments.Appointment{
		1: {ID: 1, Status: appointments.StatusConfirmed},
		2: {ID: 2, Status: appointments.StatusPending},
		3: {ID: 3, Status: appointments.StatusCompleted},
		4: {ID: 4, Status: appointments.StatusCancelled},
	}}
	store := &fakeStore{}
	return NewService(repo, appts, store), repo, store
}

func TestRecordPayment(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Record(context.Background(), CreatePaymentRequest{
		AppointmentID: 1, Method: "cash", AmountCents: 3000,
	}, 42)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if p.Status != StatusPaid {
		t.Fatalf("expected paid, got %q", p.Status)
	}
	if p.RecordedBy != 42 {
		t.Fatalf("expected recorder 42, got %d", p.RecordedBy)
	}
}

func TestRecordPaymentCompletedAppointment(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Record(context.Background(), CreatePaymentRequest{
		AppointmentID: 3, Method: "transfer", AmountCents: 8000, ReceiptKey: "receipts/3/9f2c.pdf",
	}, 42); err != nil {
		t.Fatalf("record against completed appointment: %v", err)
	}
}

func TestRecordPaymentRejectsUnpayableStates(t *testing.T) {
	svc, _, _ := newTestService()

	for _, id := range []int{2, 4} {
		_, err := svc.Record(context.Background(), CreatePaymentRequest{
			AppointmentID: id, Method: "cash", AmountCents: 3000,
		}, 42)
		if !errors.Is(err, ErrAppointmentNotPayable) {
			t.Fatalf("appointment %d: expected ErrAppointmentNotPayable, got %v", id, err)
		}
	}
}

func TestRecordPaymentTwice(t *testing.T) {
	svc, _, _ := newTestService()
	req := CreatePaymentRequest{AppointmentID: 1, Method: "cash", AmountCents: 3000}

	if _, err := svc.Record(context.Background(), req, 42); err != nil {
		t.Fatalf("first record: %v", err)
	}
	_, err := svc.Record(context.Background(), req, 42)
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestUploadReceipt(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()

	key, err := svc.UploadReceipt(ctx, 1, "voucher.PDF", bytes.NewReader([]byte("%PDF-1.7")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(key, "receipts/1/") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("key = %q, want receipts/1/<id>.pdf", key)
	}
	if ct := store.objects[key]; ct != "application/pdf" {
		t.Errorf("stored content type = %q", ct)
	}

	if _, err := svc.UploadReceipt(ctx, 1, "voucher.exe", bytes.NewReader([]byte("x"))); !errors.Is(err, ErrReceiptType) {
		t.Errorf("exe err = %v, want ErrReceiptType", err)
	}
	// Pending appointments take no money, so no receipt either.
	if _, err := svc.UploadReceipt(ctx, 2, "voucher.pdf", bytes.NewReader([]byte("x"))); !errors.Is(err, ErrAppointmentNotPayable) {
		t.Errorf("pending err = %v, want ErrAppointmentNotPayable", err)
	}
}

func TestUploadReceiptTooLarge(t *testing.T) {
	svc, _, _ := newTestService()

	big := bytes.NewReader(make([]byte, MaxReceiptBytes+1))
	if _, err := svc.UploadReceipt(context.Background(), 1, "voucher.pdf", big); !errors.Is(err, ErrReceiptTooLarge) {
		t.Fatalf("err = %v, want ErrReceiptTooLarge", err)
	}
}

func TestRecordTransferRejectsForeignReceiptKey(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	// A key not minted for this appointment is refused.
	for _, key := range []string{"anything.pdf", "receipts/99/abc.pdf"} {
		_, err := svc.Record(ctx, CreatePaymentRequest{
			AppointmentID: 1, Method: "transfer", AmountCents: 5000, ReceiptKey: key,
		}, 42)
		var fields fielderr.Fields
		if !errors.As(err, &fields) {
			t.Fatalf("key %q: err = %v, want field error", key, err)
		}
	}

	// The round trip through UploadReceipt is accepted.
	key, err := svc.UploadReceipt(ctx, 1, "voucher.pdf", bytes.NewReader([]byte("%PDF-1.7")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := svc.Record(ctx, CreatePaymentRequest{
		AppointmentID: 1, Method: "transfer", AmountCents: 5000, ReceiptKey: key,
	}, 42); err != nil {
		t.Fatalf("record with uploaded key: %v", err)
	}
}

func TestRefund(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Record(context.Background(), CreatePaymentRequest{
		AppointmentID: 1, Method: "cash", AmountCents: 3000,
	}, 42)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	refunded, err := svc.Refund(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != StatusRefunded {
		t.Fatalf("expected refunded, got %q", refunded.Status)
	}

	if _, err := svc.Refund(context.Background(), p.ID); !errors.Is(err, ErrNotRefundable) {
		t.Fatalf("expected ErrNotRefundable on second refund, got %v", err)
	}
}
