package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/smartspace/internal/backend"
	"github.com/example/smartspace/internal/calendar"
)

const (
	formDateLayout = time.DateOnly
	formTimeLayout = "15:04"
)

// Bookings serves the booking form the calendar grid links to:
//   - GET/POST /bookings/new?date=&hour=
//   - GET/POST /bookings/{id}/edit
//   - POST /bookings/{id}/cancel
//
// Successful writes redirect to the day view of the booking.
func (h *Handler) Bookings(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/bookings/"), "/")
	if rest == "new" {
		h.newBooking(w, r)
		return
	}
	rawID, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}
	switch action {
	case "edit":
		h.editBooking(w, r, id)
	case "cancel":
		h.cancelBooking(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) newBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	s, err := h.openSession(r)
	if err != nil {
		h.sessionFailed(w, r, s, err, true)
		return
	}

	form := bookingForm{Title: "New booking", Action: "/bookings/new", verb: "create"}
	if r.Method == http.MethodGet {
		form.fillSlot(r.URL.Query(), h.now())
		h.renderForm(w, r, s, http.StatusOK, form)
		return
	}
	h.submitBooking(w, r, s, form, 0)
}

func (h *Handler) editBooking(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	s, err := h.openSession(r)
	if err != nil {
		h.sessionFailed(w, r, s, err, true)
		return
	}

	form := bookingForm{
		Title:     "Edit booking",
		Action:    fmt.Sprintf("/bookings/%d/edit", id),
		BookingID: id,
		verb:      "update",
	}
	if r.Method == http.MethodPost {
		h.submitBooking(w, r, s, form, id)
		return
	}

	booking, err := s.client.GetBooking(r.Context(), id)
	if s.redirect != "" {
		http.Redirect(w, r, s.redirect, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.log(r.Context(), "EditBooking", "booking_id", id).ErrorContext(r.Context(), "failed to load booking", "error", err)
		form.Error = "Failed to load booking"
		h.renderForm(w, r, s, apiStatus(err, http.StatusBadGateway), form)
		return
	}
	form.fillBooking(booking, h.cfg.Location)
	h.renderForm(w, r, s, http.StatusOK, form)
}

func (h *Handler) cancelBooking(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	s, err := h.openSession(r)
	if err != nil {
		h.sessionFailed(w, r, s, err, true)
		return
	}

	err = s.client.CancelBooking(r.Context(), id)
	if s.redirect != "" {
		http.Redirect(w, r, s.redirect, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.log(r.Context(), "CancelBooking", "booking_id", id).ErrorContext(r.Context(), "failed to cancel booking", "error", err)
		form := bookingForm{
			Title:     "Edit booking",
			Action:    fmt.Sprintf("/bookings/%d/edit", id),
			BookingID: id,
			Error:     failureMessage("cancel", err),
		}
		h.renderForm(w, r, s, apiStatus(err, http.StatusBadGateway), form)
		return
	}
	s.persist(w)
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

// submitBooking creates (id == 0) or updates a booking from the posted form.
func (h *Handler) submitBooking(w http.ResponseWriter, r *http.Request, s *session, form bookingForm, id int64) {
	logger := h.log(r.Context(), "SubmitBooking", "booking_id", id)
	if err := r.ParseForm(); err != nil {
		form.Error = "Failed to " + form.verb + " booking: invalid form submission"
		h.renderForm(w, r, s, http.StatusBadRequest, form)
		return
	}
	form.read(r.PostForm)

	draft, fields := form.draft(h.cfg.Location)
	if len(fields) > 0 {
		form.Fields = fields
		form.Error = "Failed to " + form.verb + " booking: check the highlighted fields"
		h.renderForm(w, r, s, http.StatusUnprocessableEntity, form)
		return
	}

	var (
		booking calendar.Booking
		err     error
	)
	if id == 0 {
		booking, err = s.client.CreateBooking(r.Context(), draft)
	} else {
		booking, err = s.client.UpdateBooking(r.Context(), id, draft)
	}
	if s.redirect != "" {
		http.Redirect(w, r, s.redirect, http.StatusSeeOther)
		return
	}
	if err != nil {
		logger.InfoContext(r.Context(), "booking write rejected", "error", err)
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			form.Fields = apiErr.Fields
		}
		form.Error = failureMessage(form.verb, err)
		h.renderForm(w, r, s, apiStatus(err, http.StatusBadGateway), form)
		return
	}

	s.persist(w)
	logger.InfoContext(r.Context(), "booking saved", "booking_id", booking.ID)
	http.Redirect(w, r, calendarURL(calendar.ModeDay, booking.Start.In(h.cfg.Location), false), http.StatusSeeOther)
}

// renderForm fills the room picker and writes the form page.
func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, s *session, status int, form bookingForm) {
	rooms, err := s.client.ListRooms(r.Context())
	if s.redirect != "" {
		http.Redirect(w, r, s.redirect, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.log(r.Context(), "BookingForm").WarnContext(r.Context(), "room catalog unavailable", "error", err)
		form.RoomsFailed = true
	}
	for _, room := range rooms {
		form.Rooms = append(form.Rooms, roomOption{ID: room.ID, Name: room.Name, Selected: room.ID == form.RoomID})
	}
	if form.BackURL == "" {
		form.BackURL = "/calendar"
		if form.StartDate != "" {
			form.BackURL = "/calendar?mode=day&date=" + url.QueryEscape(form.StartDate)
		}
	}
	s.persist(w)

	var buf bytes.Buffer
	if err := bookingFormTemplate.Execute(&buf, form); err != nil {
		h.log(r.Context(), "BookingForm").ErrorContext(r.Context(), "failed to render booking form", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

type roomOption struct {
	ID       int64
	Name     string
	Selected bool
}

// bookingForm is both the template data and the posted field set.
type bookingForm struct {
	Title       string
	Action      string
	BookingID   int64
	Cancellable bool
	BackURL     string

	RoomID    int64
	Purpose   string
	StartDate string
	StartTime string
	EndDate   string
	EndTime   string
	Attendees string

	Rooms       []roomOption
	RoomsFailed bool
	Error       string
	Fields      map[string]string

	verb string
}

// fillSlot pre-fills a one hour slot from the clicked cell. Missing or bad
// parameters fall back to today at 09:00.
func (f *bookingForm) fillSlot(q url.Values, now time.Time) {
	day := now
	if date, err := time.ParseInLocation(formDateLayout, strings.TrimSpace(q.Get("date")), now.Location()); err == nil {
		day = date
	}
	hour, err := strconv.Atoi(strings.TrimSpace(q.Get("hour")))
	if err != nil || hour < 0 || hour >= calendar.HoursPerDay {
		hour = 9
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
	f.setSpan(start, start.Add(time.Hour))
}

func (f *bookingForm) fillBooking(b calendar.Booking, loc *time.Location) {
	f.RoomID = b.RoomID
	f.Purpose = b.Purpose
	f.setSpan(b.Start.In(loc), b.End.In(loc))
	ids := make([]string, 0, len(b.Attendees))
	for _, a := range b.Attendees {
		ids = append(ids, a.ID)
	}
	f.Attendees = strings.Join(ids, ", ")
	f.Cancellable = b.Status != calendar.StatusCancelled && b.Status != calendar.StatusCompleted
}

func (f *bookingForm) setSpan(start, end time.Time) {
	f.StartDate = start.Format(formDateLayout)
	f.StartTime = start.Format(formTimeLayout)
	f.EndDate = end.Format(formDateLayout)
	f.EndTime = end.Format(formTimeLayout)
}

func (f *bookingForm) read(values url.Values) {
	f.RoomID, _ = strconv.ParseInt(strings.TrimSpace(values.Get("room_id")), 10, 64)
	f.Purpose = strings.TrimSpace(values.Get("purpose"))
	f.StartDate = strings.TrimSpace(values.Get("start_date"))
	f.StartTime = strings.TrimSpace(values.Get("start_time"))
	f.EndDate = strings.TrimSpace(values.Get("end_date"))
	if f.EndDate == "" {
		f.EndDate = f.StartDate
	}
	f.EndTime = strings.TrimSpace(values.Get("end_time"))
	f.Attendees = strings.TrimSpace(values.Get("attendees"))
}

// draft converts the posted fields. Only shape errors are reported here;
// the API validates the rest.
func (f *bookingForm) draft(loc *time.Location) (backend.BookingDraft, map[string]string) {
	fields := map[string]string{}
	draft := backend.BookingDraft{RoomID: f.RoomID, Purpose: f.Purpose}
	if f.RoomID <= 0 {
		fields["room_id"] = "choose a room"
	}

	var err error
	if draft.Start, err = time.ParseInLocation(formDateLayout+" "+formTimeLayout, f.StartDate+" "+f.StartTime, loc); err != nil {
		fields["start_time"] = "enter a valid start date and time"
	}
	if draft.End, err = time.ParseInLocation(formDateLayout+" "+formTimeLayout, f.EndDate+" "+f.EndTime, loc); err != nil {
		fields["end_time"] = "enter a valid end date and time"
	}

	for _, id := range strings.Split(f.Attendees, ",") {
		if id = strings.TrimSpace(id); id != "" {
			draft.AttendeeIDs = append(draft.AttendeeIDs, id)
		}
	}
	return draft, fields
}

func failureMessage(verb string, err error) string {
	message := "Failed to " + verb + " booking"
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		message += ": " + apiErr.Message
	}
	return message
}

// apiStatus echoes client errors from the API and maps everything else to
// fallback.
func apiStatus(err error, fallback int) int {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	return fallback
}
