package payments

import (
	"errors"
	"testing"

	"github.com/oralflow/oralflow-api/internal/fielderr"
)

func fieldsOf(t *testing.T, err error) fielderr.Fields {
	t.Helper()
	var fields fielderr.Fields
	if !errors.As(err, &fields) {
		t.Fatalf("expected field errors, got %v", err)
	}
	return fields
}

func TestCreatePaymentRequestValidate(t *testing.T) {
	req := CreatePaymentRequest{AppointmentID: 7, Method: "cash", AmountCents: 4500}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid cash request rejected: %v", err)
	}

	req = CreatePaymentRequest{AppointmentID: 7, Method: "Transfer", AmountCents: 4500, ReceiptKey: "receipts/7.pdf"}
	if err := req.Validate(); err != nil {
		t.Fatalf("valid transfer request rejected: %v", err)
	}
	if req.Method != MethodTransfer {
		t.Fatalf("method not normalized: %q", req.Method)
	}
}

func TestCreatePaymentRequestValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		req   CreatePaymentRequest
		field string
	}{
		{"missing appointment", CreatePaymentRequest{Method: "cash", AmountCents: 100}, "appointment_id"},
		{"missing method", CreatePaymentRequest{AppointmentID: 1, AmountCents: 100}, "method"},
		{"unknown method", CreatePaymentRequest{AppointmentID: 1, Method: "card", AmountCents: 100}, "method"},
		{"zero amount", CreatePaymentRequest{AppointmentID: 1, Method: "cash"}, "amount_cents"},
		{"negative amount", CreatePaymentRequest{AppointmentID: 1, Method: "cash", AmountCents: -50}, "amount_cents"},
		{"transfer without receipt", CreatePaymentRequest{AppointmentID: 1, Method: "transfer", AmountCents: 100}, "receipt_key"},
		{"cash with receipt", CreatePaymentRequest{AppointmentID: 1, Method: "cash", AmountCents: 100, ReceiptKey: "receipts/1.pdf"}, "receipt_key"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fields := fieldsOf(t, tc.req.Validate())
			if _, ok := fields[tc.field]; !ok {
				t.Fatalf("expected error on %q, got %v", tc.field, fields)
			}
		})
	}
}
