package repository

import (
	"context"

	"github.com/edumarket/booking-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SlotRepository interface {
	// ReserveForBooking flips every listed slot from available to booked in a
	// single conditional update and reports how many rows actually changed.
	// The caller compares the count against len(slotIDs) inside its
	// transaction; a mismatch means another booking won the race and the
	// transaction must roll back.
	ReserveForBooking(ctx context.Context, tx *gorm.DB, slotIDs []uint, teacherID string, bookingID uint) (int64, error)
	// Release returns the booking's slots to available. Idempotent: slots no
	// longer pointing at the booking are untouched.
	Release(ctx context.Context, tx *gorm.DB, bookingID uint) error
	FindByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Slot, error)
	FindAvailableByTeacher(ctx context.Context, teacherID string) ([]models.Slot, error)
	Upsert(ctx context.Context, slot *models.Slot) error
	DeleteAvailable(ctx context.Context, id uint) error
	GetDB() *gorm.DB
}

type slotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *slotRepository) ReserveForBooking(ctx context.Context, tx *gorm.DB, slotIDs []uint, teacherID string, bookingID uint) (int64, error) {
	res := tx.WithContext(ctx).
		Model(&models.Slot{}).
		Where("id IN ? AND teacher_id = ? AND status = ?", slotIDs, teacherID, models.SlotAvailable).
		Updates(map[string]any{
			"status":     models.SlotBooked,
			"booking_id": bookingID,
		})
	return res.RowsAffected, res.Error
}

func (r *slotRepository) Release(ctx context.Context, tx *gorm.DB, bookingID uint) error {
	return tx.WithContext(ctx).
		Model(&models.Slot{}).
		Where("booking_id = ?", bookingID).
		Updates(map[string]any{
			"status":     models.SlotAvailable,
			"booking_id": nil,
		}).Error
}

func (r *slotRepository) FindByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Slot, error) {
	var slots []models.Slot
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Order("date ASC, start_time ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *slotRepository) FindAvailableByTeacher(ctx context.Context, teacherID string) ([]models.Slot, error) {
	var slots []models.Slot
	err := r.db.WithContext(ctx).
		Where("teacher_id = ? AND status = ?", teacherID, models.SlotAvailable).
		Order("date ASC, start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// Upsert syncs a slot row published by the schedule service.
func (r *slotRepository) Upsert(ctx context.Context, slot *models.Slot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"teacher_id", "date", "start_time", "end_time", "subject_id", "updated_at"}),
	}).Create(slot).Error
}

// DeleteAvailable removes a slot only while nothing holds it.
func (r *slotRepository) DeleteAvailable(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.SlotAvailable).
		Delete(&models.Slot{}).Error
}
