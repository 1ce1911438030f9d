package models

import "time"

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
)

// Slot is one bookable half-open time interval for one teacher.
// Slots are created by the schedule service and synced in via RabbitMQ;
// this service only flips them between available and booked.
type Slot struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TeacherID string     `gorm:"type:varchar(64);not null;index" json:"teacher_id"`
	Date      time.Time  `gorm:"type:date;not null" json:"date"`
	StartTime string     `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime   string     `gorm:"type:varchar(5);not null" json:"end_time"`
	SubjectID *uint      `json:"subject_id,omitempty"`
	Status    SlotStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	BookingID *uint      `gorm:"index" json:"booking_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
