package notify

import (
	"fmt"
	"time"
)

// PasswordResetEmail builds the one-time password recovery message.
func PasswordResetEmail(to, name, link string, ttl time.Duration) EmailMessage {
	minutes := int(ttl.Minutes())
	body := fmt.Sprintf(
		"Hello %s,\n\nWe received a request to reset your password. Open the link below to choose a new one:\n\n%s\n\nThe link expires in %d minutes. If you did not request this, you can ignore this email.\n\nOralFlow Dental Clinic",
		name, link, minutes,
	)
	html := fmt.Sprintf(
		`<p>Hello %s,</p><p>We received a request to reset your password. Click the button below to choose a new one:</p><p><a href="%s">Reset my password</a></p><p>The link expires in %d minutes. If you did not request this, you can ignore this email.</p><p>OralFlow Dental Clinic</p>`,
		name, link, minutes,
	)
	return EmailMessage{
		To:      to,
		ToName:  name,
		Subject: "Reset your OralFlow password",
		Body:    body,
		HTML:    html,
	}
}

// AppointmentDetails is the slice of an appointment that email templates
// need.
type AppointmentDetails struct {
	PatientName string
	DentistName string
	Date        string // YYYY-MM-DD
	StartTime   string // HH:MM
	Operatory   string
}

func (d AppointmentDetails) line() string {
	return fmt.Sprintf("%s at %s with Dr. %s (%s)", d.Date, d.StartTime, d.DentistName, d.Operatory)
}

// AppointmentBookedEmail confirms a new booking to the recipient.
func AppointmentBookedEmail(to, name string, d AppointmentDetails) EmailMessage {
	return EmailMessage{
		To:      to,
		ToName:  name,
		Subject: "Your appointment is booked",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour dental appointment for %s is booked:\n\n  %s\n\nPlease confirm it between 24 and 12 hours before the start time, or it will be released automatically.\n\nOralFlow Dental Clinic",
			name, d.PatientName, d.line(),
		),
	}
}

// AppointmentConfirmedEmail acknowledges that the slot is locked in.
func AppointmentConfirmedEmail(to, name string, d AppointmentDetails) EmailMessage {
	return EmailMessage{
		To:      to,
		ToName:  name,
		Subject: "Your appointment is confirmed",
		Body: fmt.Sprintf(
			"Hello %s,\n\nThe appointment for %s is confirmed:\n\n  %s\n\nWe look forward to seeing you. If you can no longer attend, please contact the clinic.\n\nOralFlow Dental Clinic",
			name, d.PatientName, d.line(),
		),
	}
}

// AppointmentReminderEmail asks the recipient to confirm a pending
// appointment.
func AppointmentReminderEmail(to, name string, d AppointmentDetails) EmailMessage {
	return EmailMessage{
		To:      to,
		ToName:  name,
		Subject: "Reminder: confirm your appointment",
		Body: fmt.Sprintf(
			"Hello %s,\n\nThis is a reminder of the appointment for %s:\n\n  %s\n\nIt is still pending. Please confirm it in the app; unconfirmed appointments are released 12 hours before the start time.\n\nOralFlow Dental Clinic",
			name, d.PatientName, d.line(),
		),
	}
}

// AppointmentCancelledEmail notifies the recipient that a booking was
// released.
func AppointmentCancelledEmail(to, name string, d AppointmentDetails, reason string) EmailMessage {
	body := fmt.Sprintf(
		"Hello %s,\n\nThe appointment for %s has been cancelled:\n\n  %s\n",
		name, d.PatientName, d.line(),
	)
	if reason != "" {
		body += fmt.Sprintf("\nReason: %s\n", reason)
	}
	body += "\nYou can book a new appointment from the app.\n\nOralFlow Dental Clinic"
	return EmailMessage{
		To:      to,
		ToName:  name,
		Subject: "Your appointment was cancelled",
		Body:    body,
	}
}
