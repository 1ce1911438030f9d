package database

import (
	"log"

	"github.com/edumarket/booking-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Slot{}, &models.Booking{}, &models.Payment{}); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Belt and braces under the conditional reserve update: a slot can never
	// be booked without a booking id, nor held by two bookings.
	db.Exec(`
		ALTER TABLE slots DROP CONSTRAINT IF EXISTS chk_slot_booked_has_booking;
		ALTER TABLE slots ADD CONSTRAINT chk_slot_booked_has_booking
		CHECK (status <> 'booked' OR booking_id IS NOT NULL)
	`)

	// Partial unique index: at most one active payment attempt per booking.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_active
		ON payments (booking_id)
		WHERE status IN ('pending', 'processing', 'completed')
	`)

	return db
}
