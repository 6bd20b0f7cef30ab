package payments

import "errors"

var (
	// ErrPaymentNotFound is returned when no payment matches the lookup.
	ErrPaymentNotFound = errors.New("payments: payment not found")
	// ErrAlreadyPaid is returned when the appointment already has a
	// payment on record.
	ErrAlreadyPaid = errors.New("payments: appointment already paid")
	// ErrNotRefundable is returned when a refund targets a payment that
	// is not in the paid state.
	ErrNotRefundable = errors.New("payments: payment is not refundable")
	// ErrAppointmentNotPayable is returned when the appointment is not in
	// a state that accepts payments.
	ErrAppointmentNotPayable = errors.New("payments: appointment does not accept payments")
	// ErrReceiptType is returned when the receipt file type is not
	// accepted.
	ErrReceiptType = errors.New("payments: receipt type not accepted")
	// ErrReceiptTooLarge is returned when the receipt upload exceeds the
	// size cap.
	ErrReceiptTooLarge = errors.New("payments: receipt too large")
)
