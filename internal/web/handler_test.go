package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/smartspace/internal/backend"
	"github.com/example/smartspace/internal/calendar"
)

// fakeAPI imitates the booking API for the page handlers.
type fakeAPI struct {
	mu             sync.Mutex
	principals     map[string]string
	rotations      map[string]string
	bookingsStatus int
	bookingsBody   string

	// writes records booking writes as "METHOD path body".
	writes       []string
	rejectStatus int
	rejectBody   string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		principals: map[string]string{
			"member-token": `{"user_id":"alice","is_admin":false}`,
			"admin-token":  `{"user_id":"carol","is_admin":true}`,
		},
		rotations:      map[string]string{},
		bookingsStatus: http.StatusOK,
		bookingsBody:   `{"bookings":[{"id":7,"room_id":1,"user_id":"alice","purpose":"Design review","status":"Confirmed","start_time":"2025-06-10T09:00:00","end_time":"2025-06-10T10:00:00","attendees":[]}]}`,
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	switch r.URL.Path {
	case "/auth/login":
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "correct horse" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"member-token"}`))
		return
	case "/auth/refresh":
		var req struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		next, ok := f.rotations[req.Token]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token":"` + next + `"}`))
		return
	}

	principal, ok := f.principals[token]
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.URL.Path {
	case "/auth/me":
		_, _ = w.Write([]byte(principal))
	case "/booking/all_bookings":
		w.WriteHeader(f.bookingsStatus)
		_, _ = w.Write([]byte(f.bookingsBody))
	case "/booking/rooms":
		_, _ = w.Write([]byte(`[{"id":1,"name":"Orion","location":"3F","capacity":8}]`))
	case "/admin/users":
		if !strings.Contains(principal, `"is_admin":true`) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"alice","name":"Alice Example","email":"alice@example.com","is_admin":false}]`))
	case "/admin/dashboard":
		_, _ = w.Write([]byte(`{"date":"2025-06-10","total":1,"by_status":{"Ongoing":1},"rooms_in_use":1,"upcoming":[]}`))
	case "/booking/7":
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"booking":{"id":7,"room_id":1,"room_name":"Orion","user_id":"alice","purpose":"Design review","status":"Confirmed","start_time":"2025-06-10T09:00:00","end_time":"2025-06-10T10:30:00","attendees":[{"id":"bob","name":"Bob","email":"bob@example.com"}]}}`))
			return
		}
		f.write(w, r, 7, http.StatusOK)
	case "/booking":
		f.write(w, r, 8, http.StatusCreated)
	case "/booking/7/cancel":
		f.write(w, r, 7, http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// write records a booking write and echoes the submitted times back.
func (f *fakeAPI) write(w http.ResponseWriter, r *http.Request, id int64, status int) {
	body, _ := io.ReadAll(r.Body)
	f.writes = append(f.writes, strings.TrimSpace(r.Method+" "+r.URL.Path+" "+string(body)))
	if f.rejectStatus != 0 {
		w.WriteHeader(f.rejectStatus)
		_, _ = w.Write([]byte(f.rejectBody))
		return
	}
	req := struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}{StartTime: "2025-06-10T09:00:00", EndTime: "2025-06-10T10:00:00"}
	_ = json.Unmarshal(body, &req)
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"booking":{"id":%d,"room_id":1,"user_id":"alice","purpose":"x","status":"Scheduled","start_time":%q,"end_time":%q,"attendees":[]}}`, id, req.StartTime, req.EndTime)
}

func (f *fakeAPI) recordedWrites() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

func (f *fakeAPI) update(fn func(api *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type webFixture struct {
	api     *fakeAPI
	handler http.Handler
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	api := newFakeAPI()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	client := backend.NewClient(server.URL, server.Client(), testZone)
	h := NewHandler(client, Config{
		Location: testZone,
		Now:      func() time.Time { return at(10, 9, 30) },
	}, nil)
	return &webFixture{api: api, handler: h.Routes()}
}

func (f *webFixture) get(target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestCalendarHandler(t *testing.T) {
	t.Parallel()

	t.Run("redirects anonymous visitors to login", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		rec := f.get("/calendar", "")
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != backend.LoginPath {
			t.Fatalf("expected redirect to login, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("renders today's grid", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		rec := f.get("/calendar", "member-token")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		html := rec.Body.String()
		for _, want := range []string{
			`data-booking-id="7"`,
			"Design review",
			"Orion",
			"status-ongoing",
			"/calendar?date=2025-06-09&amp;mode=day",
			"/calendar?date=2025-06-11&amp;mode=day",
		} {
			if !strings.Contains(html, want) {
				t.Fatalf("page missing %q", want)
			}
		}
		if strings.Contains(html, "calendar-today-link") {
			t.Fatal("today link must be hidden on today's day view")
		}
		if strings.Contains(html, "view=list") {
			t.Fatal("members must not see the list toggle")
		}
	})

	t.Run("shows an empty state", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		f.api.update(func(api *fakeAPI) { api.bookingsBody = `{"bookings":[]}` })
		rec := f.get("/calendar?mode=week&date=2025-06-20", "member-token")
		html := rec.Body.String()
		if !strings.Contains(html, "No bookings") || !strings.Contains(html, "calendar-today-link") {
			t.Fatalf("expected empty state with today link, got %s", html)
		}
		if strings.Count(html, `class="calendar-cell"`) != calendar.HoursPerDay*7 {
			t.Fatal("empty week should still render the full grid")
		}
	})

	t.Run("reports backend failures", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		f.api.update(func(api *fakeAPI) {
			api.bookingsStatus = http.StatusInternalServerError
			api.bookingsBody = `{}`
		})
		rec := f.get("/calendar", "member-token")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Failed to load bookings") {
			t.Fatalf("expected error banner, got %d", rec.Code)
		}
	})

	t.Run("refreshes an expired token", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		f.api.update(func(api *fakeAPI) { api.rotations["stale-token"] = "member-token" })
		rec := f.get("/calendar", "stale-token")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 after refresh, got %d", rec.Code)
		}
		var rotated string
		for _, c := range rec.Result().Cookies() {
			if c.Name == sessionCookieName {
				rotated = c.Value
			}
		}
		if rotated != "member-token" {
			t.Fatalf("expected rotated cookie, got %q", rotated)
		}
	})

	t.Run("sends unrecoverable sessions to login", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		rec := f.get("/calendar", "revoked-token")
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != backend.LoginPath {
			t.Fatalf("expected redirect to login, got %d", rec.Code)
		}
	})

	t.Run("administrators can open the list view", func(t *testing.T) {
		t.Parallel()

		f := newWebFixture(t)
		rec := f.get("/calendar?view=list", "admin-token")
		html := rec.Body.String()
		if !strings.Contains(html, "calendar-list") || !strings.Contains(html, "Alice Example") || !strings.Contains(html, "Ongoing") {
			t.Fatalf("expected admin list, got %s", html)
		}
	})
}

func TestLayoutHandler(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	rec := f.get("/calendar/layout?mode=day&date=2025-06-10", "member-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body layoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Mode != "day" || body.WindowStart != "2025-06-10T00:00:00" || body.CanGoToday {
		t.Fatalf("unexpected layout header %+v", body)
	}
	if len(body.Cards) != 1 {
		t.Fatalf("expected one card, got %d", len(body.Cards))
	}
	card := body.Cards[0]
	if card.Top != 720 || card.Height != 80 || card.Status != "Ongoing" || card.Booking.RoomName != "Orion" {
		t.Fatalf("unexpected card %+v", card)
	}

	unauth := f.get("/calendar/layout", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous JSON requests, got %d", unauth.Code)
	}
}

func TestListHandler(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	if rec := f.get("/calendar/list", "member-token"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for members, got %d", rec.Code)
	}

	rec := f.get("/calendar/list?mode=week&date=2025-06-10", "admin-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body listResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Bookings) != 1 || body.Bookings[0].Status != "Ongoing" || body.Bookings[0].Organizer != "Alice Example" {
		t.Fatalf("unexpected list %+v", body.Bookings)
	}
}

func TestDashboardHandler(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	if rec := f.get("/dashboard", "member-token"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for members, got %d", rec.Code)
	}

	rec := f.get("/dashboard", "admin-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body dashboardResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.PollAfterSeconds != 60 || body.ByStatus["Ongoing"] != 1 || body.RoomsInUse != 1 {
		t.Fatalf("unexpected dashboard %+v", body)
	}
}

func TestLoginHandler(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t)
	if rec := f.get("/login", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<form") {
		t.Fatalf("expected login form, got %d", rec.Code)
	}

	post := func(password string) *httptest.ResponseRecorder {
		form := url.Values{"email": {"alice@example.com"}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := post("wrong")
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid email or password") {
		t.Fatalf("expected rejected login, got %d", rec.Code)
	}

	rec = post("correct horse")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/calendar" {
		t.Fatalf("expected redirect to calendar, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "member-token" {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
}
