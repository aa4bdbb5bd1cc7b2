package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/smartspace/internal/backend"
	"github.com/example/smartspace/internal/calendar"
	"github.com/example/smartspace/internal/logging"
)

const sessionCookieName = "session_token"

// Config carries the presentation settings of the calendar pages.
type Config struct {
	Location     *time.Location
	Now          func() time.Time
	Build        calendar.BuildOptions
	PollInterval time.Duration
}

// Handler serves the calendar page, its JSON views and the dashboard.
type Handler struct {
	client *backend.Client
	cfg    Config
	logger *slog.Logger
}

// NewHandler wires the page handlers to the booking API client.
func NewHandler(client *backend.Client, cfg Config, logger *slog.Logger) *Handler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, cfg: cfg, logger: logger}
}

// Routes registers the page endpoints:
//   - GET/POST /login
//   - GET /calendar?mode=&date=&view=list
//   - GET /calendar/layout?mode=&date=
//   - GET /calendar/list?mode=&date= (administrators)
//   - GET /dashboard (administrators)
//   - GET/POST /bookings/new, GET/POST /bookings/{id}/edit,
//     POST /bookings/{id}/cancel
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", h.Login)
	mux.HandleFunc("/calendar", h.Calendar)
	mux.HandleFunc("/calendar/layout", h.Layout)
	mux.HandleFunc("/calendar/list", h.List)
	mux.HandleFunc("/dashboard", h.Dashboard)
	mux.HandleFunc("/bookings/", h.Bookings)
	return mux
}

func (h *Handler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	base := h.logger
	if scoped := logging.FromContext(ctx); scoped != nil {
		base = scoped
	}
	attrs = append([]any{"component", "WebHandler", "operation", operation}, attrs...)
	return base.With(attrs...)
}

func (h *Handler) now() time.Time {
	return h.cfg.Now().In(h.cfg.Location)
}

// session is the per-request view of the caller: a client bound to the
// caller's token and a navigator recording where the browser must go.
type session struct {
	client    *backend.Client
	tokens    *backend.StaticToken
	initial   string
	redirect  string
	principal backend.Principal
}

func (h *Handler) openSession(r *http.Request) (*session, error) {
	token := requestToken(r)
	s := &session{tokens: backend.NewStaticToken(token), initial: token}
	if token == "" {
		s.redirect = backend.LoginPath
		return s, backend.ErrUnauthorized
	}
	s.client = h.client.WithAuth(s.tokens, backend.NavigatorFunc(func(path string) { s.redirect = path }))

	principal, err := s.client.Me(r.Context())
	if err != nil {
		return s, err
	}
	s.principal = principal
	return s, nil
}

// persist hands a rotated token back to the browser.
func (s *session) persist(w http.ResponseWriter) {
	if token := s.tokens.Token(); token != "" && token != s.initial {
		setSessionCookie(w, token)
	}
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func requestToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// openPage builds a page for the query and loads it once.
func (h *Handler) openPage(ctx context.Context, s *session, q url.Values) (*CalendarPage, error) {
	page := NewCalendarPage(s.client, h.now, s.principal.IsAdmin, h.logger)
	if mode, ok := calendar.ParseMode(q.Get("mode")); ok {
		page.controller.SwitchMode(mode)
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		if date, err := time.ParseInLocation(time.DateOnly, raw, h.cfg.Location); err == nil {
			page.controller.SetReference(date)
		}
	}
	if q.Get("view") == "list" {
		page.controller.SetListMode(true)
	}
	_, err := page.Load(ctx)
	return page, err
}

// Calendar handles GET /calendar.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	logger := h.log(r.Context(), "Calendar")

	s, err := h.openSession(r)
	if err != nil {
		h.sessionFailed(w, r, s, err, true)
		return
	}
	page, err := h.openPage(r.Context(), s, r.URL.Query())
	if s.redirect != "" {
		http.Redirect(w, r, s.redirect, http.StatusSeeOther)
		return
	}
	s.persist(w)
	if err != nil {
		logger.ErrorContext(r.Context(), "calendar rendered without bookings", "error", err)
	}

	data, err := h.pageData(page)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to render grid", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.ErrorContext(r.Context(), "failed to render page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type modeLink struct {
	Label  string
	URL    string
	Active bool
}

type listRow struct {
	ID          int64
	Purpose     string
	RoomName    string
	Organizer   string
	StartTime   string
	EndTime     string
	Status      calendar.Status
	StatusClass string
}

type pageData struct {
	Title      string
	PrevURL    string
	NextURL    string
	TodayURL   string
	ListURL    string
	ListActive bool
	Modes      []modeLink
	Failed     bool
	Empty      bool
	Grid       template.HTML
	List       []listRow
}

func (h *Handler) pageData(page *CalendarPage) (pageData, error) {
	mode := page.Mode()
	ref := page.Reference()
	listMode := page.ListMode()

	data := pageData{
		Title:      pageTitle(mode, ref),
		PrevURL:    calendarURL(mode, calendar.Shift(ref, mode, -1), listMode),
		NextURL:    calendarURL(mode, calendar.Shift(ref, mode, 1), listMode),
		ListActive: listMode,
		Failed:     page.Err() != nil,
	}
	if page.CanGoToday() {
		data.TodayURL = calendarURL(mode, h.now(), listMode)
	}
	if page.isAdmin {
		data.ListURL = calendarURL(mode, ref, true)
	}
	for _, m := range []calendar.Mode{calendar.ModeDay, calendar.ModeWeek, calendar.ModeMonth} {
		data.Modes = append(data.Modes, modeLink{
			Label:  strings.ToUpper(string(m[:1])) + string(m[1:]),
			URL:    calendarURL(m, ref, false),
			Active: !listMode && m == mode,
		})
	}

	view := page.View(h.cfg.Build)
	if listMode {
		data.Empty = !data.Failed && len(view.List) == 0
		for _, entry := range view.List {
			data.List = append(data.List, listRow{
				ID:          entry.Booking.ID,
				Purpose:     entry.Booking.Purpose,
				RoomName:    entry.Booking.RoomName,
				Organizer:   page.EmployeeName(entry.Booking.UserID),
				StartTime:   entry.Booking.Start.In(h.cfg.Location).Format("2006-01-02 15:04"),
				EndTime:     entry.Booking.End.In(h.cfg.Location).Format("2006-01-02 15:04"),
				Status:      entry.Status,
				StatusClass: strings.ToLower(string(entry.Status)),
			})
		}
		return data, nil
	}

	data.Empty = !data.Failed && len(view.Cards) == 0
	var grid bytes.Buffer
	if err := view.Grid.Render(&grid); err != nil {
		return pageData{}, err
	}
	data.Grid = template.HTML(grid.String())
	return data, nil
}

func pageTitle(mode calendar.Mode, ref time.Time) string {
	switch mode {
	case calendar.ModeWeek:
		return "Week of " + calendar.ResolveWindow(ref, mode).Start.Format("02 Jan 2006")
	case calendar.ModeMonth:
		return ref.Format("January 2006")
	default:
		return ref.Format("Monday, 02 January 2006")
	}
}

func calendarURL(mode calendar.Mode, date time.Time, list bool) string {
	q := url.Values{}
	q.Set("mode", string(mode))
	q.Set("date", date.Format(time.DateOnly))
	if list {
		q.Set("view", "list")
	}
	return "/calendar?" + q.Encode()
}

// Layout handles GET /calendar/layout.
func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	logger := h.log(r.Context(), "Layout")

	s, err := h.openSession(r)
	if err != nil {
		h.sessionFailed(w, r, s, err, false)
		return
	}
	q := r.URL.Query()
	q.Del("view")
	page, err := h.openPage(r.Context(), s, q)
	if s.redirect != "" {
		h.writeJSON(r.Context(), w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Redirect: s.redirect})
		return
	}
	s.persist(w)
	if err != nil {
		logger.ErrorContext(r.Context(), "layout without bookings", "error", err)
		h.writeJSON(r.Context(), w, http.StatusBadGateway, errorBody{Error: "Failed to load bookings"})
		return
	}

	view := page.View(h.cfg.Build)
	now := h.now()
	cards := make([]cardDTO, 0, len(view.Cards))
	for _, card := range view.Cards {
		cards = append(cards, h.toCardDTO(card, now))
	}
	h.writeJSON(r.Context(), w, http.StatusOK, layoutResponse{
		Mode:        string(view.Mode),
		Reference:   view.Reference.In(h.cfg.Location).Format(time.DateOnly),
		WindowStart: calendar.FormatWireTime(view.Window.Start, h.cfg.Location),
		WindowEnd:   calendar.FormatWireTime(view.Window.End, h.cfg.Location),
		CanGoToday:  page.CanGoToday(),
		Cards:       cards,
	})
}

// List handles GET /calendar/list.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	logger := h.log(r.Context(), "List")

	s, err := h.openSession(r)
	if err != nil {
		h.sessionFailed(w, r, s, err, false)
		return
	}
	if !s.principal.IsAdmin {
		h.writeJSON(r.Context(), w, http.StatusForbidden, errorBody{Error: "forbidden"})
		return
	}
	q := r.URL.Query()
	q.Set("view", "list")
	page, err := h.openPage(r.Context(), s, q)
	if s.redirect != "" {
		h.writeJSON(r.Context(), w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Redirect: s.redirect})
		return
	}
	s.persist(w)
	if err != nil {
		logger.ErrorContext(r.Context(), "list without bookings", "error", err)
		h.writeJSON(r.Context(), w, http.StatusBadGateway, errorBody{Error: "Failed to load bookings"})
		return
	}

	view := page.View(h.cfg.Build)
	entries := make([]listEntryDTO, 0, len(view.List))
	for _, entry := range view.List {
		entries = append(entries, listEntryDTO{
			Booking:   h.toBookingDTO(entry.Booking),
			Organizer: page.EmployeeName(entry.Booking.UserID),
			Status:    string(entry.Status),
		})
	}
	h.writeJSON(r.Context(), w, http.StatusOK, listResponse{Bookings: entries})
}

// Dashboard handles GET /dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	logger := h.log(r.Context(), "Dashboard")

	s, err := h.openSession(r)
	if err != nil {
		h.sessionFailed(w, r, s, err, false)
		return
	}
	if !s.principal.IsAdmin {
		h.writeJSON(r.Context(), w, http.StatusForbidden, errorBody{Error: "forbidden"})
		return
	}

	stats, err := s.client.DashboardStats(r.Context())
	if s.redirect != "" {
		h.writeJSON(r.Context(), w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Redirect: s.redirect})
		return
	}
	s.persist(w)
	if err != nil {
		logger.ErrorContext(r.Context(), "dashboard stats unavailable", "error", err)
		h.writeJSON(r.Context(), w, http.StatusBadGateway, errorBody{Error: "Failed to load dashboard"})
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	upcoming := make([]bookingDTO, 0, len(stats.Upcoming))
	for _, b := range stats.Upcoming {
		upcoming = append(upcoming, h.toBookingDTO(b))
	}
	h.writeJSON(r.Context(), w, http.StatusOK, dashboardResponse{
		Date:             stats.Date,
		Total:            stats.Total,
		ByStatus:         byStatus,
		RoomsInUse:       stats.RoomsInUse,
		Upcoming:         upcoming,
		PollAfterSeconds: int(h.cfg.PollInterval / time.Second),
	})
}

// Login handles GET and POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.renderLogin(w, r, http.StatusOK, loginData{})
	case http.MethodPost:
		logger := h.log(r.Context(), "Login")
		if err := r.ParseForm(); err != nil {
			h.renderLogin(w, r, http.StatusBadRequest, loginData{Error: "Invalid form submission"})
			return
		}
		email := strings.TrimSpace(r.PostForm.Get("email"))
		token, err := h.client.Login(r.Context(), email, r.PostForm.Get("password"))
		if err != nil {
			status := http.StatusBadGateway
			message := "Sign-in is unavailable, try again later"
			if errors.Is(err, backend.ErrUnauthorized) {
				status = http.StatusUnauthorized
				message = "Invalid email or password"
			}
			logger.InfoContext(r.Context(), "sign-in failed", "error", err)
			h.renderLogin(w, r, status, loginData{Email: email, Error: message})
			return
		}
		setSessionCookie(w, token)
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

type loginData struct {
	Email string
	Error string
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginData) {
	var buf bytes.Buffer
	if err := loginTemplate.Execute(&buf, data); err != nil {
		h.log(r.Context(), "Login").ErrorContext(r.Context(), "failed to render login page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// sessionFailed answers a request whose session could not be resolved.
// HTML requests are redirected; JSON requests get a 401 naming the target.
func (h *Handler) sessionFailed(w http.ResponseWriter, r *http.Request, s *session, err error, html bool) {
	if s.redirect != "" || errors.Is(err, backend.ErrUnauthorized) {
		target := s.redirect
		if target == "" {
			target = backend.LoginPath
		}
		if html {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		h.writeJSON(r.Context(), w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Redirect: target})
		return
	}
	h.log(r.Context(), "Session").ErrorContext(r.Context(), "failed to resolve session", "error", err)
	if html {
		http.Error(w, "Failed to load bookings", http.StatusBadGateway)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusBadGateway, errorBody{Error: "Failed to load bookings"})
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log(ctx, "writeJSON").ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

type errorBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

type bookingDTO struct {
	ID        int64               `json:"id"`
	RoomID    int64               `json:"room_id"`
	RoomName  string              `json:"room_name"`
	UserID    string              `json:"user_id"`
	Purpose   string              `json:"purpose"`
	Status    string              `json:"status"`
	StartTime string              `json:"start_time"`
	EndTime   string              `json:"end_time"`
	Attendees []calendar.Attendee `json:"attendees"`
}

func (h *Handler) toBookingDTO(b calendar.Booking) bookingDTO {
	attendees := b.Attendees
	if attendees == nil {
		attendees = []calendar.Attendee{}
	}
	return bookingDTO{
		ID:        b.ID,
		RoomID:    b.RoomID,
		RoomName:  b.RoomName,
		UserID:    b.UserID,
		Purpose:   b.Purpose,
		Status:    string(b.Status),
		StartTime: calendar.FormatWireTime(b.Start, h.cfg.Location),
		EndTime:   calendar.FormatWireTime(b.End, h.cfg.Location),
		Attendees: attendees,
	}
}

type cardDTO struct {
	Booking         bookingDTO `json:"booking"`
	Status          string     `json:"status"`
	Day             string     `json:"day"`
	DayOffset       int        `json:"day_offset"`
	StartMinute     float64    `json:"start_minute"`
	EndMinute       float64    `json:"end_minute"`
	Segment         int        `json:"segment"`
	Segments        int        `json:"segments"`
	ContinuesBefore bool       `json:"continues_before"`
	ContinuesAfter  bool       `json:"continues_after"`
	Top             float64    `json:"top"`
	Height          float64    `json:"height"`
	Left            float64    `json:"left"`
	Width           float64    `json:"width"`
	Inset           float64    `json:"inset"`
	Lane            int        `json:"lane"`
	Lanes           int        `json:"lanes"`
	Conflict        bool       `json:"conflict"`
}

func (h *Handler) toCardDTO(card calendar.LaidOutBooking, now time.Time) cardDTO {
	return cardDTO{
		Booking:         h.toBookingDTO(card.Booking),
		Status:          string(card.Booking.DerivedStatus(now)),
		Day:             card.Day.Format(time.DateOnly),
		DayOffset:       card.DayOffset,
		StartMinute:     card.StartMinute,
		EndMinute:       card.EndMinute,
		Segment:         card.Segment,
		Segments:        card.Segments,
		ContinuesBefore: card.ContinuesBefore,
		ContinuesAfter:  card.ContinuesAfter,
		Top:             card.Top,
		Height:          card.Height,
		Left:            card.Left,
		Width:           card.Width,
		Inset:           card.Inset,
		Lane:            card.Lane,
		Lanes:           card.Lanes,
		Conflict:        card.Conflict,
	}
}

type layoutResponse struct {
	Mode        string    `json:"mode"`
	Reference   string    `json:"reference"`
	WindowStart string    `json:"window_start"`
	WindowEnd   string    `json:"window_end"`
	CanGoToday  bool      `json:"can_go_today"`
	Cards       []cardDTO `json:"cards"`
}

type listEntryDTO struct {
	Booking   bookingDTO `json:"booking"`
	Organizer string     `json:"organizer"`
	Status    string     `json:"status"`
}

type listResponse struct {
	Bookings []listEntryDTO `json:"bookings"`
}

type dashboardResponse struct {
	Date             string         `json:"date"`
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"by_status"`
	RoomsInUse       int            `json:"rooms_in_use"`
	Upcoming         []bookingDTO   `json:"upcoming"`
	PollAfterSeconds int            `json:"poll_after_seconds"`
}
