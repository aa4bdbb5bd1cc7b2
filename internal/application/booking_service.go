package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/smartspace/internal/calendar"
	"github.com/example/smartspace/internal/persistence"
	"github.com/example/smartspace/internal/scheduler"
)

// BookingRepository captures the persistence interactions needed by the service.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error)
}

// BookingRepositoryFilter narrows queries issued to the booking repository.
// The time range is inclusive: Start <= EndsBy and End >= StartsFrom.
type BookingRepositoryFilter struct {
	StartsFrom *time.Time
	EndsBy     *time.Time
	Statuses   []calendar.Status
	RoomID     *int64
	UserID     string
}

// RoomCatalog exposes room lookup operations.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// BookingService orchestrates validation, conflict detection and persistence
// for room bookings.
type BookingService struct {
	bookings BookingRepository
	rooms    RoomCatalog
	users    UserDirectory
	now      func() time.Time
	cache    *warningCache
	logger   *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingRepository, rooms RoomCatalog, users UserDirectory, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, rooms, users, now, nil)
}

// NewBookingServiceWithLogger wires dependencies with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, rooms RoomCatalog, users UserDirectory, now func() time.Time, logger *slog.Logger) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings: bookings,
		rooms:    rooms,
		users:    users,
		now:      now,
		cache:    newWarningCache(30*time.Second, 128),
		logger:   defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the request, rejects room double-bookings and
// persists the booking. Attendee overlaps are returned as warnings.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, warnings []ConflictWarning, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", params.Principal.UserID,
		"room_id", params.Input.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID, "warning_count", len(warnings)).InfoContext(ctx, "booking created")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	input := normalizeBookingInput(params.Input)
	if input.Status == "" {
		input.Status = calendar.StatusScheduled
	}
	vErr := validateBookingInput(input)
	if input.Status != calendar.StatusScheduled && input.Status != calendar.StatusConfirmed {
		vErr.add("status", "new bookings must be Scheduled or Confirmed")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var candidate Booking
	if candidate, err = s.resolveBooking(ctx, Booking{
		RoomID:  input.RoomID,
		UserID:  params.Principal.UserID,
		Purpose: input.Purpose,
		Status:  input.Status,
		Start:   input.Start,
		End:     input.End,
	}, input.AttendeeIDs); err != nil {
		return
	}

	if warnings, err = s.checkConflicts(ctx, candidate); err != nil {
		return
	}

	now := s.now()
	candidate.CreatedAt = now
	candidate.UpdatedAt = now
	if booking, err = s.bookings.CreateBooking(ctx, candidate); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	booking.RoomName = candidate.RoomName
	booking.Attendees = candidate.Attendees
	s.cache.Invalidate()
	return
}

// UpdateBooking reschedules or edits a booking. Only the owner or an
// administrator may change it.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (booking Booking, warnings []ConflictWarning, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("warning_count", len(warnings)).InfoContext(ctx, "booking updated")
	}()

	var existing Booking
	if existing, err = s.bookings.GetBooking(ctx, params.BookingID); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if existing.UserID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input := normalizeBookingInput(params.Input)
	if input.Status == "" {
		input.Status = existing.Status
	}
	vErr := validateBookingInput(input)
	if existing.Status == calendar.StatusCancelled && input.Status != calendar.StatusCancelled {
		vErr.add("status", "cancelled bookings cannot be reopened")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.RoomID = input.RoomID
	updated.Purpose = input.Purpose
	updated.Status = input.Status
	updated.Start = input.Start
	updated.End = input.End
	if updated, err = s.resolveBooking(ctx, updated, input.AttendeeIDs); err != nil {
		return
	}

	if warnings, err = s.checkConflicts(ctx, updated); err != nil {
		return
	}

	updated.UpdatedAt = s.now()
	if booking, err = s.bookings.UpdateBooking(ctx, updated); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	booking.RoomName = updated.RoomName
	booking.Attendees = updated.Attendees
	s.cache.Invalidate()
	return
}

// CancelBooking marks a booking as Cancelled. Cancelling twice is a no-op;
// bookings that have already ended cannot be cancelled.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, bookingID int64) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelBooking",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	if booking, err = s.bookings.GetBooking(ctx, bookingID); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if booking.UserID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	switch calendar.DeriveStatus(booking.Status, booking.Start, booking.End, s.now()) {
	case calendar.StatusCancelled:
		return
	case calendar.StatusCompleted:
		err = newValidationError("status", "completed bookings cannot be cancelled")
		return
	}

	booking.Status = calendar.StatusCancelled
	booking.UpdatedAt = s.now()
	if booking, err = s.bookings.UpdateBooking(ctx, booking); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	s.cache.Invalidate()
	return
}

// GetBooking returns a single booking with room and attendee names resolved.
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	decorated, err := s.decorate(ctx, []Booking{booking})
	if err != nil {
		return Booking{}, err
	}
	return decorated[0], nil
}

// ListBookings returns the bookings matching params ordered by start then ID,
// together with the room and attendee conflicts among them.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) (result BookingList, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListBookings", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(result.Bookings), "warning_count", len(result.Warnings)).DebugContext(ctx, "bookings listed")
	}()

	if params.Start != nil && params.End != nil && params.End.Before(*params.Start) {
		err = newValidationError("end", "end must not be before start")
		return
	}

	filter := BookingRepositoryFilter{
		StartsFrom: params.Start,
		EndsBy:     params.End,
		Statuses:   params.Statuses,
		RoomID:     params.RoomID,
	}
	if params.Mine {
		filter.UserID = params.Principal.UserID
	}

	var bookings []Booking
	if bookings, err = s.bookings.ListBookings(ctx, filter); err != nil {
		if isNotFoundError(err) {
			err = nil
			return
		}
		err = mapBookingRepoError(err)
		return
	}

	ordered := make([]Booking, len(bookings))
	copy(ordered, bookings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	if ordered, err = s.decorate(ctx, ordered); err != nil {
		return
	}

	key := buildWarningCacheKey(params)
	warnings, ok := s.cache.Get(key)
	if !ok {
		warnings = detectListConflicts(ordered)
		s.cache.Store(key, warnings)
	}

	result = BookingList{Bookings: ordered, Warnings: warnings}
	return
}

// resolveBooking checks that the room and attendees exist and fills in the
// room name and attendee details.
func (s *BookingService) resolveBooking(ctx context.Context, booking Booking, attendeeIDs []string) (Booking, error) {
	if s.rooms != nil {
		room, err := s.rooms.GetRoom(ctx, booking.RoomID)
		if err != nil {
			if isNotFoundError(err) {
				return Booking{}, newValidationError("room_id", "room does not exist")
			}
			return Booking{}, err
		}
		booking.RoomName = room.Name
	}

	booking.Attendees = make([]Attendee, 0, len(attendeeIDs))
	if len(attendeeIDs) == 0 {
		return booking, nil
	}
	directory, err := s.userIndex(ctx)
	if err != nil {
		return Booking{}, err
	}

	var missing []string
	for _, id := range attendeeIDs {
		if directory == nil {
			booking.Attendees = append(booking.Attendees, Attendee{ID: id})
			continue
		}
		user, ok := directory[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		booking.Attendees = append(booking.Attendees, Attendee{ID: user.ID, Name: user.DisplayName, Email: user.Email})
	}
	if len(missing) > 0 {
		return Booking{}, newValidationError("attendees", fmt.Sprintf("unknown user ids: %s", strings.Join(missing, ", ")))
	}
	return booking, nil
}

// checkConflicts compares candidate with the overlapping bookings. A room
// conflict is an error; attendee conflicts are returned as warnings.
func (s *BookingService) checkConflicts(ctx context.Context, candidate Booking) ([]ConflictWarning, error) {
	if candidate.Status == calendar.StatusCancelled {
		return nil, nil
	}
	start, end := candidate.Start, candidate.End
	existing, err := s.bookings.ListBookings(ctx, BookingRepositoryFilter{StartsFrom: &start, EndsBy: &end})
	if err != nil && !isNotFoundError(err) {
		return nil, mapBookingRepoError(err)
	}

	others := make([]scheduler.Booking, 0, len(existing))
	for _, b := range existing {
		others = append(others, toSchedulerBooking(b))
	}
	conflicts := scheduler.DetectConflicts(others, toSchedulerBooking(candidate))
	if scheduler.HasRoomConflict(conflicts) {
		for _, c := range conflicts {
			if c.Type == scheduler.ConflictTypeRoom {
				return nil, fmt.Errorf("%w: room %d is already booked by booking %d", ErrConflict, c.RoomID, c.WithBookingID)
			}
		}
	}
	return toConflictWarnings(conflicts), nil
}

// decorate fills room names and attendee details from the catalogs. Missing
// entries are left blank.
func (s *BookingService) decorate(ctx context.Context, bookings []Booking) ([]Booking, error) {
	if len(bookings) == 0 {
		return bookings, nil
	}

	roomNames := make(map[int64]string)
	if s.rooms != nil {
		rooms, err := s.rooms.ListRooms(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range rooms {
			roomNames[r.ID] = r.Name
		}
	}
	directory, err := s.userIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Booking, len(bookings))
	for i, b := range bookings {
		if name, ok := roomNames[b.RoomID]; ok {
			b.RoomName = name
		}
		attendees := make([]Attendee, len(b.Attendees))
		for j, a := range b.Attendees {
			if user, ok := directory[a.ID]; ok {
				a.Name = user.DisplayName
				a.Email = user.Email
			}
			attendees[j] = a
		}
		b.Attendees = attendees
		out[i] = b
	}
	return out, nil
}

func (s *BookingService) userIndex(ctx context.Context) (map[string]User, error) {
	if s.users == nil {
		return nil, nil
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]User, len(users))
	for _, u := range users {
		index[u.ID] = u
	}
	return index, nil
}

func normalizeBookingInput(input BookingInput) BookingInput {
	input.Purpose = strings.TrimSpace(input.Purpose)
	if status, ok := calendar.ParseStatus(string(input.Status)); ok {
		input.Status = status
	}
	input.AttendeeIDs = uniqueStrings(input.AttendeeIDs)
	return input
}

func validateBookingInput(input BookingInput) *ValidationError {
	vErr := &ValidationError{}

	if input.RoomID <= 0 {
		vErr.add("room_id", "room is required")
	}
	if input.Purpose == "" {
		vErr.add("purpose", "purpose is required")
	} else if len(input.Purpose) > 200 {
		vErr.add("purpose", "purpose must be at most 200 characters")
	}
	if input.Start.IsZero() {
		vErr.add("start_time", "start time is required")
	}
	if input.End.IsZero() {
		vErr.add("end_time", "end time is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("end_time", "end time must be after start time")
	}
	switch input.Status {
	case calendar.StatusScheduled, calendar.StatusConfirmed, calendar.StatusCancelled, calendar.StatusCompleted:
	default:
		vErr.add("status", "status must be Scheduled, Confirmed, Cancelled or Completed")
	}

	return vErr
}

func toSchedulerBooking(b Booking) scheduler.Booking {
	return scheduler.Booking{
		ID:        b.ID,
		RoomID:    b.RoomID,
		Attendees: append([]string{b.UserID}, b.AttendeeIDs()...),
		Start:     b.Start,
		End:       b.End,
		Cancelled: b.Status == calendar.StatusCancelled,
	}
}

func toConflictWarnings(conflicts []scheduler.Conflict) []ConflictWarning {
	if len(conflicts) == 0 {
		return nil
	}
	warnings := make([]ConflictWarning, 0, len(conflicts))
	for _, c := range conflicts {
		warnings = append(warnings, ConflictWarning{
			BookingID:  c.WithBookingID,
			Type:       string(c.Type),
			AttendeeID: c.AttendeeID,
			RoomID:     c.RoomID,
		})
	}
	return warnings
}

// detectListConflicts reports each overlapping pair once, from the earlier
// booking's point of view.
func detectListConflicts(bookings []Booking) []ConflictWarning {
	if len(bookings) <= 1 {
		return nil
	}

	converted := make([]scheduler.Booking, len(bookings))
	for i, b := range bookings {
		converted[i] = toSchedulerBooking(b)
	}

	var warnings []ConflictWarning
	for i := range converted[:len(converted)-1] {
		conflicts := scheduler.DetectConflicts(converted[i+1:], converted[i])
		warnings = append(warnings, toConflictWarnings(conflicts)...)
	}
	return warnings
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func mapBookingRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newValidationError("end_time", "end time must be after start time")
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return newValidationError("room_id", "room or attendee does not exist")
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
