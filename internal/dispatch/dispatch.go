// Package dispatch fans out transition events to the surrounding platform
// (notifications, points, chat-room creation). Events are fired only after
// the local transaction has committed; delivery is best effort.
package dispatch

import "time"

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCancelled = "payment.cancelled"
	EventPaymentRefunded  = "payment.refunded"
)

type Event struct {
	Name       string    `json:"name"`
	BookingID  uint      `json:"booking_id"`
	PaymentID  uint      `json:"payment_id,omitempty"`
	StudentID  string    `json:"student_id"`
	TeacherID  string    `json:"teacher_id"`
	Amount     float64   `json:"amount,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Dispatcher delivers events to external collaborators. Implementations must
// not fail the calling operation: the local state change is already committed.
type Dispatcher interface {
	Dispatch(event Event)
}
