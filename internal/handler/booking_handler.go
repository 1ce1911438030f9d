package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edumarket/booking-service/internal/dto"
	"github.com/edumarket/booking-service/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/teachers/:id/slots", h.ListAvailableSlots)

	bookings := e.Group("/api/v1/bookings")
	bookings.POST("", h.CreateBooking)
	bookings.GET("/:id", h.GetBooking)
	bookings.POST("/:id/approve", h.ApproveBooking)
	bookings.POST("/:id/reject", h.RejectBooking)
	bookings.POST("/:id/cancel", h.CancelBooking)
	bookings.POST("/:id/complete", h.CompleteBooking)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.StudentID == "" || req.TeacherID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "student_id and teacher_id are required")
	}
	if req.UnitPrice <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "unit_price must be positive")
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		StudentID:    req.StudentID,
		TeacherID:    req.TeacherID,
		SlotIDs:      req.SlotIDs,
		SubjectLabel: req.SubjectLabel,
		UnitPrice:    req.UnitPrice,
		Currency:     req.Currency,
	})
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	booking, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ApproveBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ApproveBookingRequest
	if err := c.Bind(&req); err != nil || req.TeacherID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "teacher_id is required")
	}
	booking, err := h.svc.Approve(c.Request().Context(), id, req.TeacherID)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) RejectBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.RejectBookingRequest
	if err := c.Bind(&req); err != nil || req.TeacherID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "teacher_id is required")
	}
	booking, err := h.svc.Reject(c.Request().Context(), id, req.TeacherID, req.Reason)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CancelBookingRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	booking, err := h.svc.Cancel(c.Request().Context(), id, req.UserID)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CompleteBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CompleteBookingRequest
	if err := c.Bind(&req); err != nil || req.TeacherID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "teacher_id is required")
	}
	booking, err := h.svc.Complete(c.Request().Context(), id, req.TeacherID)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListAvailableSlots(c echo.Context) error {
	teacherID := c.Param("id")
	slots, err := h.svc.ListAvailableSlots(c.Request().Context(), teacherID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]dto.SlotResponse, len(slots))
	for i := range slots {
		resp[i] = dto.ToSlotResponse(&slots[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func bookingError(err error) error {
	switch {
	case errors.Is(err, service.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoSlotsSelected),
		errors.Is(err, service.ErrMixedTeachers):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrAlreadyFinalized),
		errors.Is(err, service.ErrAlreadyCompleted),
		errors.Is(err, service.ErrNotConfirmed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
