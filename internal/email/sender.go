// Package email renders and delivers the transactional emails the booking
// flow produces.
package email

import "context"

// BookingAlertData feeds the new-booking alert sent to company staff.
type BookingAlertData struct {
	CompanyName      string
	ClientName       string
	ClientPhone      string
	ClientEmail      string
	ServiceName      string
	ProfessionalName string
	StartLocal       string
	Notes            string
	DashboardURL     string
}

// Sender delivers transactional emails.
type Sender interface {
	SendBookingAlertEmail(ctx context.Context, toEmail string, data BookingAlertData) error
	SendCancellationEmail(ctx context.Context, toEmail, clientName, companyName, startLocal string) error
	SendReminderEmail(ctx context.Context, toEmail, clientName, companyName, startLocal string) error
}

// NoopSender is used when SMTP is not configured; sends succeed silently.
type NoopSender struct{}

func (NoopSender) SendBookingAlertEmail(context.Context, string, BookingAlertData) error {
	return nil
}

func (NoopSender) SendCancellationEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendReminderEmail(context.Context, string, string, string, string) error {
	return nil
}
