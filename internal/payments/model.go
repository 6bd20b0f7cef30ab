// Package payments records how completed appointments were paid. Every
// appointment carries at most one payment; transfers require a receipt.
package payments

import (
	"strings"
	"time"

	"github.com/oralflow/oralflow-api/internal/fielderr"
)

// MaxReceiptBytes caps transfer receipt uploads at 5 MB.
const MaxReceiptBytes = 5 << 20

// receiptExtensions lists the receipt file types the clinic accepts.
var receiptExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Payment methods.
const (
	MethodCash     = "cash"
	MethodTransfer = "transfer"
)

// Payment states.
const (
	StatusPaid     = "paid"
	StatusRefunded = "refunded"
)

// Payment is the money record of one appointment.
type Payment struct {
	ID            int       `json:"id"`
	AppointmentID int       `json:"appointment_id"`
	Method        string    `json:"method"`
	AmountCents   int       `json:"amount_cents"`
	ReceiptKey    string    `json:"receipt_key,omitempty"` // object key of the transfer receipt
	Status        string    `json:"status"`
	RecordedBy    int       `json:"recorded_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreatePaymentRequest records a payment against an appointment.
type CreatePaymentRequest struct {
	AppointmentID int    `json:"appointment_id"`
	Method        string `json:"method"`
	AmountCents   int    `json:"amount_cents"`
	ReceiptKey    string `json:"receipt_key"`
}

// Validate checks the request field by field.
func (r *CreatePaymentRequest) Validate() error {
	errs := fielderr.Fields{}

	if r.AppointmentID <= 0 {
		errs.Add("appointment_id", "Appointment is required.")
	}
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))
	switch r.Method {
	case MethodCash, MethodTransfer:
	case "":
		errs.Add("method", "Payment method is required.")
	default:
		errs.Add("method", "Payment method must be cash or transfer.")
	}
	if r.AmountCents <= 0 {
		errs.Add("amount_cents", "Amount must be greater than zero.")
	}
	r.ReceiptKey = strings.TrimSpace(r.ReceiptKey)
	if r.Method == MethodTransfer && r.ReceiptKey == "" {
		errs.Add("receipt_key", "A transfer receipt is required.")
	}
	if r.Method == MethodCash && r.ReceiptKey != "" {
		errs.Add("receipt_key", "Cash payments do not carry a receipt.")
	}

	return errs.OrNil()
}
