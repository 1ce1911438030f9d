package dto

type CreateBookingRequest struct {
	StudentID    string  `json:"student_id"`
	TeacherID    string  `json:"teacher_id"`
	SlotIDs      []uint  `json:"slot_ids"`
	SubjectLabel string  `json:"subject_label"`
	UnitPrice    float64 `json:"unit_price"`
	Currency     string  `json:"currency"`
}

type ApproveBookingRequest struct {
	TeacherID string `json:"teacher_id"`
}

type RejectBookingRequest struct {
	TeacherID string `json:"teacher_id"`
	Reason    string `json:"reason"`
}

type CancelBookingRequest struct {
	UserID string `json:"user_id"`
}

type CompleteBookingRequest struct {
	TeacherID string `json:"teacher_id"`
}

type CreatePaymentRequest struct {
	StudentID    string   `json:"student_id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	PhoneNumbers []string `json:"phone_numbers"`
}

type CancelPaymentRequest struct {
	UserID string `json:"user_id"`
}

type RefundPaymentRequest struct {
	Amount  *float64 `json:"amount,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

// WebhookPayload is the provider's callback body. The order reference is the
// transaction id this service generated at payment creation.
type WebhookPayload struct {
	OrderID        string `json:"order_id"`
	OrderReference string `json:"order_reference_id"`
	EventType      string `json:"event_type"`
	Status         string `json:"status"`
}
