// Package notify sends booking confirmation and cancellation emails.
// Notification failure never affects the booking itself: every send is
// fire-and-forget with logging.
package notify

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/cinewave/showtime-booking/internal/model"
)

// Mailer sends plain text mail.  With an empty host it is disabled
// and every send becomes a no-op, so local setups without SMTP work.
type Mailer struct {
	host string
	port string
	user string
	pass string
}

// NewMailer builds a Mailer from SMTP settings.
func NewMailer(host, port, user, pass string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass}
}

// BookingConfirmed mails the booking confirmation to the booking's
// contact address.
func (m *Mailer) BookingConfirmed(b model.Booking, seats []model.BookingSeat, userName, movieTitle, theaterName, startsAt string) {
	labels := make([]string, 0, len(seats))
	for _, s := range seats {
		labels = append(labels, s.RowLabel+fmt.Sprint(s.SeatNumber))
	}
	body := fmt.Sprintf(
		"Dear %s,\n\nYour booking is confirmed.\n\nBooking: %s\nMovie: %s\nTheater: %s\nShowtime: %s\nSeats: %s\nTotal: %d\n\nPlease arrive 30 minutes before the show.\n",
		userName, b.Ref, movieTitle, theaterName, startsAt, strings.Join(labels, ", "), b.FinalAmount)
	m.send(b.ContactEmail, "Booking Confirmation - "+b.Ref, body)
}

// BookingCancelled mails the cancellation notice with the refund
// amount.
func (m *Mailer) BookingCancelled(b model.Booking, userName, movieTitle string) {
	refund := int64(0)
	if b.Cancellation != nil {
		refund = b.Cancellation.RefundAmount
	}
	body := fmt.Sprintf(
		"Dear %s,\n\nYour booking %s for %s has been cancelled.\nRefund amount: %d\nYour refund will be processed within 5-7 business days.\n",
		userName, b.Ref, movieTitle, refund)
	m.send(b.ContactEmail, "Booking Cancelled - "+b.Ref, body)
}

func (m *Mailer) send(to, subject, body string) {
	if m == nil || m.host == "" || to == "" {
		return
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.user, to, subject, body)
	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(addr, auth, m.user, []string{to}, []byte(msg)); err != nil {
		log.Printf("notify: send mail to %s failed: %v", to, err)
	}
}
