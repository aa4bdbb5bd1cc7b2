package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/smartspace/internal/application"
	"github.com/example/smartspace/internal/calendar"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, []application.ConflictWarning, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (application.Booking, []application.ConflictWarning, error)
	CancelBooking(ctx context.Context, principal application.Principal, bookingID int64) (application.Booking, error)
	GetBooking(ctx context.Context, bookingID int64) (application.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) (application.BookingList, error)
}

// BookingHandler serves the booking endpoints. Timestamps are exchanged as
// naive wall-clock strings in loc.
type BookingHandler struct {
	service   bookingService
	loc       *time.Location
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, loc *time.Location, logger *slog.Logger) *BookingHandler {
	if loc == nil {
		loc = time.Local
	}
	base := defaultLogger(logger)
	return &BookingHandler{service: service, loc: loc, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// List handles GET /booking/all_bookings?start&end&status&room_id&mine.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := h.buildListParams(r.URL.Query(), principal)
	logger := h.log(r.Context(), "List")

	result, err := h.service.ListBookings(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(result.Bookings)).InfoContext(r.Context(), "bookings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{
		Bookings: h.toBookingDTOs(result.Bookings),
		Warnings: toWarningDTOs(result.Warnings),
	})
}

// Get handles GET /booking/{id}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := h.bookingID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.renderBooking(r.Context(), w, booking, nil, http.StatusOK)
}

// Create handles POST /booking.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	booking, warnings, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     req.toInput(h.loc),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID, "warning_count", len(warnings)).InfoContext(r.Context(), "booking created")
	h.renderBooking(r.Context(), w, booking, warnings, http.StatusCreated)
}

// Update handles PUT /booking/{id}.
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := h.bookingID(r)
	if !ok {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing booking id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "booking_id", bookingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "booking_id", bookingID)

	booking, warnings, err := h.service.UpdateBooking(r.Context(), application.UpdateBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Input:     req.toInput(h.loc),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("warning_count", len(warnings)).InfoContext(r.Context(), "booking updated")
	h.renderBooking(r.Context(), w, booking, warnings, http.StatusOK)
}

// Cancel handles POST /booking/{id}/cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := h.bookingID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "booking_id", bookingID)

	booking, err := h.service.CancelBooking(r.Context(), principal, bookingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.renderBooking(r.Context(), w, booking, nil, http.StatusOK)
}

func (h *BookingHandler) bookingID(r *http.Request) (int64, bool) {
	raw, ok := ResourceIDFromContext(r.Context())
	if !ok {
		return 0, false
	}
	return parseID(raw)
}

func (h *BookingHandler) renderBooking(ctx context.Context, w http.ResponseWriter, booking application.Booking, warnings []application.ConflictWarning, status int) {
	h.responder.writeJSON(ctx, w, status, bookingResponse{
		Booking:  h.toBookingDTO(booking),
		Warnings: toWarningDTOs(warnings),
	})
}

func (h *BookingHandler) buildListParams(values url.Values, principal application.Principal) application.ListBookingsParams {
	params := application.ListBookingsParams{Principal: principal}

	if start := strings.TrimSpace(values.Get("start")); start != "" {
		if ts, ok := parseQueryTime(start, h.loc, false); ok {
			params.Start = &ts
		}
	}
	if end := strings.TrimSpace(values.Get("end")); end != "" {
		if ts, ok := parseQueryTime(end, h.loc, true); ok {
			params.End = &ts
		}
	}
	for _, raw := range parseCSV(values.Get("status")) {
		if status, ok := calendar.ParseStatus(raw); ok {
			params.Statuses = append(params.Statuses, status)
		}
	}
	if room := strings.TrimSpace(values.Get("room_id")); room != "" {
		if id, ok := parseID(room); ok {
			params.RoomID = &id
		}
	}
	if mine, err := strconv.ParseBool(values.Get("mine")); err == nil {
		params.Mine = mine
	}

	return params
}

// parseQueryTime accepts wire timestamps and bare dates. A bare date used as
// an upper bound covers the whole day.
func parseQueryTime(value string, loc *time.Location, upper bool) (time.Time, bool) {
	if ts, err := calendar.ParseWireTime(value, loc); err == nil {
		return ts, true
	}
	day, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, false
	}
	if upper {
		return calendar.ResolveWindow(day, calendar.ModeDay).End, true
	}
	return day, true
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

type bookingRequest struct {
	RoomID    int64    `json:"room_id"`
	Purpose   string   `json:"purpose"`
	Status    string   `json:"status"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Attendees []string `json:"attendees"`
}

func (r bookingRequest) toInput(loc *time.Location) application.BookingInput {
	input := application.BookingInput{
		RoomID:      r.RoomID,
		Purpose:     strings.TrimSpace(r.Purpose),
		Status:      calendar.Status(strings.TrimSpace(r.Status)),
		AttendeeIDs: append([]string(nil), r.Attendees...),
	}
	if ts, err := calendar.ParseWireTime(r.StartTime, loc); err == nil {
		input.Start = ts
	}
	if ts, err := calendar.ParseWireTime(r.EndTime, loc); err == nil {
		input.End = ts
	}
	return input
}

type bookingResponse struct {
	Booking  bookingDTO           `json:"booking"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO         `json:"bookings"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

type attendeeDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type bookingDTO struct {
	ID        int64         `json:"id"`
	RoomID    int64         `json:"room_id"`
	RoomName  string        `json:"room_name"`
	UserID    string        `json:"user_id"`
	Purpose   string        `json:"purpose"`
	Status    string        `json:"status"`
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time"`
	Attendees []attendeeDTO `json:"attendees"`
}

func (h *BookingHandler) toBookingDTO(booking application.Booking) bookingDTO {
	return newBookingDTO(booking, h.loc)
}

func newBookingDTO(booking application.Booking, loc *time.Location) bookingDTO {
	attendees := make([]attendeeDTO, 0, len(booking.Attendees))
	for _, a := range booking.Attendees {
		attendees = append(attendees, attendeeDTO{ID: a.ID, Name: a.Name, Email: a.Email})
	}
	return bookingDTO{
		ID:        booking.ID,
		RoomID:    booking.RoomID,
		RoomName:  booking.RoomName,
		UserID:    booking.UserID,
		Purpose:   booking.Purpose,
		Status:    string(booking.Status),
		StartTime: calendar.FormatWireTime(booking.Start, loc),
		EndTime:   calendar.FormatWireTime(booking.End, loc),
		Attendees: attendees,
	}
}

func (h *BookingHandler) toBookingDTOs(bookings []application.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, h.toBookingDTO(booking))
	}
	return out
}

type conflictWarningDTO struct {
	BookingID  int64  `json:"booking_id"`
	Type       string `json:"type"`
	AttendeeID string `json:"attendee_id,omitempty"`
	RoomID     int64  `json:"room_id,omitempty"`
}

func toWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}

	out := make([]conflictWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, conflictWarningDTO{
			BookingID:  warning.BookingID,
			Type:       warning.Type,
			AttendeeID: warning.AttendeeID,
			RoomID:     warning.RoomID,
		})
	}
	return out
}
