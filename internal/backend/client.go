// Package backend is a typed client for the booking REST API consumed by the
// calendar page.
//
// Payloads that do not match the expected shape are treated as empty lists
// and logged at WARN; only transport failures and non-2xx answers surface as
// errors. A 401 triggers one token refresh and a retry. When the refresh
// fails the injected Navigator is sent to /login and ErrUnauthorized is
// returned.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/smartspace/internal/calendar"
)

// LoginPath is where the Navigator is sent once the session cannot be renewed.
const LoginPath = "/login"

const (
	defaultTimeout  = 10 * time.Second
	lookupCacheSize = 16
	lookupCacheTTL  = 5 * time.Minute

	roomsCacheKey     = "rooms"
	employeesCacheKey = "employees"

	maxBodyBytes = 4 << 20
)

var (
	// ErrUnauthorized is returned when the session is rejected and could not
	// be refreshed.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrStatus wraps non-2xx answers.
	ErrStatus = errors.New("backend: unexpected status")
)

// TokenSource supplies the bearer token and receives rotated tokens.
type TokenSource interface {
	Token() string
	SetToken(token string)
}

// StaticToken is a TokenSource holding a single token in memory.
type StaticToken struct {
	mu    sync.Mutex
	value string
}

// NewStaticToken returns a token source seeded with token.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{value: token}
}

// Token returns the current token.
func (s *StaticToken) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// SetToken replaces the current token.
func (s *StaticToken) SetToken(token string) {
	s.mu.Lock()
	s.value = token
	s.mu.Unlock()
}

// Navigator redirects the user agent. It replaces any process-wide
// navigation hook.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Room is an entry of the room catalog.
type Room struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Location   string `json:"location"`
	Capacity   int    `json:"capacity"`
	Facilities string `json:"facilities,omitempty"`
}

// Employee is an entry of the user directory.
type Employee struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Principal describes the authenticated caller.
type Principal struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

// DashboardStats is today's activity summary.
type DashboardStats struct {
	Date       string                  `json:"date"`
	Total      int                     `json:"total"`
	ByStatus   map[calendar.Status]int `json:"by_status"`
	RoomsInUse int                     `json:"rooms_in_use"`
	Upcoming   []calendar.Booking      `json:"upcoming"`
}

// BookingQuery filters ListBookings. Zero times are omitted.
type BookingQuery struct {
	Start    time.Time
	End      time.Time
	Statuses []calendar.Status
}

// Client talks to the booking API. The zero value is not usable; build one
// with NewClient and derive per-user clients with WithAuth.
type Client struct {
	baseURL  string
	http     *http.Client
	location *time.Location
	logger   *slog.Logger

	rooms     *expirable.LRU[string, []Room]
	employees *expirable.LRU[string, []Employee]

	tokens    TokenSource
	navigator Navigator
}

// NewClient builds a client for baseURL. Wire times are read and written in
// loc. A nil httpClient gets a client with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client, loc *time.Location) *Client {
	return NewClientWithLogger(baseURL, httpClient, loc, nil)
}

// NewClientWithLogger is NewClient with an explicit logger.
func NewClientWithLogger(baseURL string, httpClient *http.Client, loc *time.Location, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		location:  loc,
		logger:    logger.With("component", "backend_client"),
		rooms:     expirable.NewLRU[string, []Room](lookupCacheSize, nil, lookupCacheTTL),
		employees: expirable.NewLRU[string, []Employee](lookupCacheSize, nil, lookupCacheTTL),
	}
}

// WithAuth returns a client that authenticates with tokens and reports
// unrecoverable 401s to nav. The lookup caches are shared with c.
func (c *Client) WithAuth(tokens TokenSource, nav Navigator) *Client {
	clone := *c
	clone.tokens = tokens
	clone.navigator = nav
	return &clone
}

// InvalidateLookups drops the cached rooms and employees.
func (c *Client) InvalidateLookups() {
	c.rooms.Purge()
	c.employees.Purge()
}

// ListBookings fetches the bookings matching q.
func (c *Client) ListBookings(ctx context.Context, q BookingQuery) ([]calendar.Booking, error) {
	params := url.Values{}
	if !q.Start.IsZero() {
		params.Set("start", calendar.FormatWireTime(q.Start, c.location))
	}
	if !q.End.IsZero() {
		params.Set("end", calendar.FormatWireTime(q.End, c.location))
	}
	if len(q.Statuses) > 0 {
		values := make([]string, 0, len(q.Statuses))
		for _, s := range q.Statuses {
			values = append(values, string(s))
		}
		params.Set("status", strings.Join(values, ","))
	}

	body, err := c.get(ctx, "/booking/all_bookings", params)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Bookings json.RawMessage `json:"bookings"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.logger.WarnContext(ctx, "malformed bookings payload", "error", err)
		return []calendar.Booking{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(envelope.Bookings, &items); err != nil {
		c.logger.WarnContext(ctx, "bookings payload is not an array", "error", err)
		return []calendar.Booking{}, nil
	}

	bookings := make([]calendar.Booking, 0, len(items))
	for i, raw := range items {
		booking, err := c.decodeBooking(raw)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed booking", "index", i, "error", err)
			continue
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

// ListRooms returns the room catalog, cached for a few minutes.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	if rooms, ok := c.rooms.Get(roomsCacheKey); ok {
		return rooms, nil
	}
	body, err := c.get(ctx, "/booking/rooms", nil)
	if err != nil {
		return nil, err
	}
	rooms := decodeList[Room](ctx, c.logger, "rooms", body)
	c.rooms.Add(roomsCacheKey, rooms)
	return rooms, nil
}

// ListEmployees returns the user directory. The endpoint is restricted to
// administrators, so callers should only ask on behalf of one.
func (c *Client) ListEmployees(ctx context.Context) ([]Employee, error) {
	if employees, ok := c.employees.Get(employeesCacheKey); ok {
		return employees, nil
	}
	body, err := c.get(ctx, "/admin/users", nil)
	if err != nil {
		return nil, err
	}
	employees := decodeList[Employee](ctx, c.logger, "employees", body)
	c.employees.Add(employeesCacheKey, employees)
	return employees, nil
}

// Login exchanges credentials for a session token. Rejected credentials
// yield ErrUnauthorized without notifying the Navigator.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("encode login: %w", err)
	}
	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/login", payload)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusUnauthorized:
		return "", ErrUnauthorized
	case status < 200 || status > 299:
		return "", fmt.Errorf("%w: POST /auth/login answered %d", ErrStatus, status)
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if result.Token == "" {
		return "", errors.New("login response carried no token")
	}
	return result.Token, nil
}

// BookingDraft is the editable part of a booking. An empty Status leaves the
// API default (create) or the stored status (update) in place.
type BookingDraft struct {
	RoomID      int64
	Purpose     string
	Status      calendar.Status
	Start       time.Time
	End         time.Time
	AttendeeIDs []string
}

// APIError is a non-2xx answer other than 401. Fields holds per-field
// validation messages when the API reported them.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match rejections with errors.Is(err, ErrStatus).
func (e *APIError) Unwrap() error { return ErrStatus }

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var payload struct {
		ErrorCode string            `json:"error_code"`
		Message   string            `json:"message"`
		Errors    map[string]string `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Code = payload.ErrorCode
		apiErr.Message = payload.Message
		apiErr.Fields = payload.Errors
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// GetBooking fetches one booking.
func (c *Client) GetBooking(ctx context.Context, id int64) (calendar.Booking, error) {
	body, err := c.get(ctx, fmt.Sprintf("/booking/%d", id), nil)
	if err != nil {
		return calendar.Booking{}, err
	}
	return c.decodeEnvelope(body)
}

// CreateBooking submits a new booking and returns it as stored.
func (c *Client) CreateBooking(ctx context.Context, draft BookingDraft) (calendar.Booking, error) {
	body, err := c.write(ctx, http.MethodPost, "/booking", c.draftPayload(draft))
	if err != nil {
		return calendar.Booking{}, err
	}
	return c.decodeEnvelope(body)
}

// UpdateBooking replaces the editable fields of booking id.
func (c *Client) UpdateBooking(ctx context.Context, id int64, draft BookingDraft) (calendar.Booking, error) {
	body, err := c.write(ctx, http.MethodPut, fmt.Sprintf("/booking/%d", id), c.draftPayload(draft))
	if err != nil {
		return calendar.Booking{}, err
	}
	return c.decodeEnvelope(body)
}

// CancelBooking marks booking id as cancelled.
func (c *Client) CancelBooking(ctx context.Context, id int64) error {
	_, err := c.write(ctx, http.MethodPost, fmt.Sprintf("/booking/%d/cancel", id), nil)
	return err
}

type draftPayload struct {
	RoomID    int64    `json:"room_id"`
	Purpose   string   `json:"purpose"`
	Status    string   `json:"status,omitempty"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Attendees []string `json:"attendees"`
}

func (c *Client) draftPayload(d BookingDraft) draftPayload {
	attendees := d.AttendeeIDs
	if attendees == nil {
		attendees = []string{}
	}
	return draftPayload{
		RoomID:    d.RoomID,
		Purpose:   d.Purpose,
		Status:    string(d.Status),
		StartTime: calendar.FormatWireTime(d.Start, c.location),
		EndTime:   calendar.FormatWireTime(d.End, c.location),
		Attendees: attendees,
	}
}

func (c *Client) decodeEnvelope(body []byte) (calendar.Booking, error) {
	var envelope struct {
		Booking json.RawMessage `json:"booking"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return calendar.Booking{}, fmt.Errorf("decode booking response: %w", err)
	}
	booking, err := c.decodeBooking(envelope.Booking)
	if err != nil {
		return calendar.Booking{}, fmt.Errorf("decode booking response: %w", err)
	}
	return booking, nil
}

// Me returns the principal behind the current token.
func (c *Client) Me(ctx context.Context) (Principal, error) {
	body, err := c.get(ctx, "/auth/me", nil)
	if err != nil {
		return Principal{}, err
	}
	var principal Principal
	if err := json.Unmarshal(body, &principal); err != nil {
		return Principal{}, fmt.Errorf("decode principal: %w", err)
	}
	return principal, nil
}

// DashboardStats fetches today's summary. Administrators only.
func (c *Client) DashboardStats(ctx context.Context) (DashboardStats, error) {
	body, err := c.get(ctx, "/admin/dashboard", nil)
	if err != nil {
		return DashboardStats{}, err
	}

	var payload struct {
		Date       string          `json:"date"`
		Total      int             `json:"total"`
		ByStatus   map[string]int  `json:"by_status"`
		RoomsInUse int             `json:"rooms_in_use"`
		Upcoming   json.RawMessage `json:"upcoming"`
	}
	stats := DashboardStats{ByStatus: map[calendar.Status]int{}, Upcoming: []calendar.Booking{}}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.WarnContext(ctx, "malformed dashboard payload", "error", err)
		return stats, nil
	}
	stats.Date = payload.Date
	stats.Total = payload.Total
	stats.RoomsInUse = payload.RoomsInUse
	for key, count := range payload.ByStatus {
		if status, ok := calendar.ParseStatus(key); ok {
			stats.ByStatus[status] = count
		}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(payload.Upcoming, &items); err == nil {
		for _, raw := range items {
			if booking, err := c.decodeBooking(raw); err == nil {
				stats.Upcoming = append(stats.Upcoming, booking)
			}
		}
	}
	return stats, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	status, body, err := c.send(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, newAPIError(status, body)
	}
	return body, nil
}

// write sends a mutating request with a JSON body.
func (c *Client) write(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	status, body, err := c.send(ctx, method, path, encoded)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, newAPIError(status, body)
	}
	return body, nil
}

// send performs one request, refreshing the token and retrying once on 401.
// A second 401 notifies the Navigator.
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	status, body, err := c.do(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return 0, nil, err
	}
	if status != http.StatusUnauthorized {
		return status, body, nil
	}
	if !c.refresh(ctx) {
		return 0, nil, c.unauthorized(ctx, path)
	}
	status, body, err = c.do(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusUnauthorized {
		return 0, nil, c.unauthorized(ctx, path)
	}
	return status, body, nil
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", req.URL.Path, err)
	}
	return resp.StatusCode, body, nil
}

// refresh rotates the session token once. It reports whether the caller
// should retry.
func (c *Client) refresh(ctx context.Context) bool {
	if c.tokens == nil || c.tokens.Token() == "" {
		return false
	}
	payload, err := json.Marshal(map[string]string{"token": c.tokens.Token()})
	if err != nil {
		return false
	}
	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/refresh", payload)
	if err != nil {
		c.logger.WarnContext(ctx, "token refresh failed", "error", err)
		return false
	}
	if status != http.StatusOK {
		c.logger.InfoContext(ctx, "token refresh rejected", "status", status)
		return false
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.Token == "" {
		c.logger.WarnContext(ctx, "malformed refresh payload", "error", err)
		return false
	}
	c.tokens.SetToken(result.Token)
	return true
}

func (c *Client) unauthorized(ctx context.Context, path string) error {
	c.logger.InfoContext(ctx, "session rejected, redirecting to login", "path", path)
	if c.navigator != nil {
		c.navigator.Navigate(LoginPath)
	}
	return ErrUnauthorized
}

type bookingPayload struct {
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

func (c *Client) decodeBooking(raw json.RawMessage) (calendar.Booking, error) {
	var p bookingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return calendar.Booking{}, err
	}
	start, err := calendar.ParseWireTime(p.StartTime, c.location)
	if err != nil {
		return calendar.Booking{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := calendar.ParseWireTime(p.EndTime, c.location)
	if err != nil {
		return calendar.Booking{}, fmt.Errorf("end_time: %w", err)
	}
	status, ok := calendar.ParseStatus(p.Status)
	if !ok {
		status = calendar.StatusScheduled
	}
	return calendar.Booking{
		ID:        p.ID,
		RoomID:    p.RoomID,
		RoomName:  p.RoomName,
		UserID:    p.UserID,
		Purpose:   p.Purpose,
		Status:    status,
		Start:     start,
		End:       end,
		Attendees: p.Attendees,
	}, nil
}

func decodeList[T any](ctx context.Context, logger *slog.Logger, what string, body []byte) []T {
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		logger.WarnContext(ctx, "malformed lookup payload", "lookup", what, "error", err)
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}
