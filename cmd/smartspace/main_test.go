package main

import (
	"bytes"
	"context"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/example/smartspace/internal/application"
	"github.com/example/smartspace/internal/calendar"
	"github.com/example/smartspace/internal/config"
	"github.com/example/smartspace/internal/testfixtures"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRepositoryAdapters(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory(testfixtures.WithLogger(quietLogger()))
	ctx := context.Background()

	users := newUserRepositoryAdapter(h.Users)
	rooms := newRoomRepositoryAdapter(h.Rooms)
	bookings := newBookingRepositoryAdapter(h.Bookings)

	admin := h.SeedUser(testfixtures.NewUserFixture(testfixtures.WithUserAdmin(), testfixtures.WithUserName("Ada")))
	guest := h.SeedUser(testfixtures.NewUserFixture(testfixtures.WithUserName("Grace")))

	room, err := factory.NewRoomService(rooms).CreateRoom(ctx, application.CreateRoomParams{
		Principal: admin.Principal(),
		Input:     testfixtures.NewRoomFixture(testfixtures.WithRoomName("Orion"), testfixtures.WithRoomFacilities("whiteboard")).Input(),
	})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.ID == 0 || room.Facilities == nil || *room.Facilities != "whiteboard" {
		t.Fatalf("unexpected room %+v", room)
	}

	service := factory.NewBookingService(bookings, rooms, users)
	input := testfixtures.NewBookingFixture(room.ID, admin.ID, testfixtures.WithBookingAttendees(guest.ID)).Input()
	created, _, err := service.CreateBooking(ctx, application.CreateBookingParams{Principal: admin.Principal(), Input: input})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if created.RoomName != "Orion" || len(created.Attendees) != 1 || created.Attendees[0].Name != "Grace" {
		t.Fatalf("unexpected booking %+v", created)
	}

	list, err := service.ListBookings(ctx, application.ListBookingsParams{Principal: guest.Principal(), Mine: true})
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(list.Bookings) != 1 || list.Bookings[0].ID != created.ID || list.Bookings[0].Status != calendar.StatusScheduled {
		t.Fatalf("attendee should see the booking, got %+v", list.Bookings)
	}

	renamed := admin.Application()
	renamed.DisplayName = "Ada L."
	if _, err := users.UpdateUser(ctx, renamed, ""); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	creds, err := users.GetUserCredentialsByEmail(ctx, admin.Email)
	if err != nil {
		t.Fatalf("GetUserCredentialsByEmail: %v", err)
	}
	if creds.User.DisplayName != "Ada L." || creds.PasswordHash != admin.PasswordHash {
		t.Fatalf("an empty hash must keep the stored one, got %+v", creds)
	}
}

func TestRenderAgenda(t *testing.T) {
	color.NoColor = true

	now := testfixtures.At(10, 9, 30)
	bookings := []calendar.Booking{
		testfixtures.NewBookingFixture(1, "alice",
			testfixtures.WithBookingStatus(calendar.StatusConfirmed),
			testfixtures.WithBookingTimes(testfixtures.At(10, 9, 0), testfixtures.At(10, 10, 0)),
		).Calendar(),
		testfixtures.NewBookingFixture(1, "bob",
			testfixtures.WithBookingPurpose("Retro"),
			testfixtures.WithBookingTimes(testfixtures.At(10, 9, 30), testfixtures.At(10, 11, 0)),
		).Calendar(),
		testfixtures.NewBookingFixture(2, "carol",
			testfixtures.WithBookingPurpose("Release night"),
			testfixtures.WithBookingTimes(testfixtures.At(10, 23, 0), testfixtures.At(11, 1, 0)),
		).Calendar(),
	}
	bookings[0].ID, bookings[1].ID, bookings[2].ID = 1, 2, 3
	bookings[0].RoomName, bookings[1].RoomName = "Orion", "Orion"

	t.Run("day", func(t *testing.T) {
		var buf bytes.Buffer
		window := calendar.ResolveWindow(now, calendar.ModeDay)
		if err := renderAgenda(&buf, bookings, calendar.ModeDay, window, now); err != nil {
			t.Fatalf("renderAgenda: %v", err)
		}
		want := strings.Join([]string{
			"Tuesday, June 10 2025",
			"  09:00-10:00   Ongoing    Weekly sync (Orion) overlap",
			"  09:30-11:00   Scheduled  Retro (Orion) overlap",
			"  23:00-24:00>  Scheduled  Release night",
			"",
		}, "\n")
		if got := buf.String(); got != want {
			t.Fatalf("unexpected agenda:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("week", func(t *testing.T) {
		var buf bytes.Buffer
		window := calendar.ResolveWindow(now, calendar.ModeWeek)
		if err := renderAgenda(&buf, bookings, calendar.ModeWeek, window, now); err != nil {
			t.Fatalf("renderAgenda: %v", err)
		}
		out := buf.String()
		if !strings.HasPrefix(out, "Monday, June 9 2025\n  no bookings\n") {
			t.Fatalf("week should start on Monday, got:\n%s", out)
		}
		if !strings.Contains(out, "Wednesday, June 11 2025\n  <00:00-01:00  Scheduled  Release night\n") {
			t.Fatalf("overnight booking should continue on Wednesday, got:\n%s", out)
		}
		if strings.Count(out, "\n\n") != 6 {
			t.Fatalf("expected seven day blocks, got:\n%s", out)
		}
	})
}

func TestBuildHandler(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)

	hash, err := application.HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := h.SeedUser(testfixtures.NewUserFixture(testfixtures.WithUserPasswordHash(hash)))
	room := h.SeedRoom(testfixtures.NewRoomFixture(testfixtures.WithRoomName("Orion")))
	h.SeedBooking(testfixtures.NewBookingFixture(room.ID, user.ID, testfixtures.WithBookingPurpose("Design review")))

	server := httptest.NewUnstartedServer(nil)
	cfg := config.Default()
	cfg.SessionSecret = "test-secret"
	cfg.Location = testfixtures.Zone
	cfg.BackendBaseURL = "http://" + server.Listener.Addr().String()
	server.Config.Handler = buildHandler(cfg, h.Pool, testfixtures.ReferenceTime, quietLogger())
	server.Start()
	t.Cleanup(server.Close)

	client := server.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/calendar" {
		t.Fatalf("root should redirect to the calendar, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = client.Get(server.URL + "/calendar")
	if err != nil {
		t.Fatalf("GET /calendar: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("anonymous calendar should redirect to login, got %d", resp.StatusCode)
	}

	form := url.Values{"email": {user.Email}, "password": {"correct-horse-battery"}}
	resp, err = client.PostForm(server.URL+"/login", form)
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected sign-in redirect, got %d", resp.StatusCode)
	}
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_token" {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("expected a session cookie")
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/calendar", nil)
	req.AddCookie(&http.Cookie{Name: session.Name, Value: session.Value})
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("GET /calendar: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Design review") {
		t.Fatalf("expected the booking on today's calendar, got %d:\n%s", resp.StatusCode, body)
	}

	req, _ = http.NewRequest(http.MethodGet, server.URL+"/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+session.Value)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("GET /admin/dashboard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("members must not read the dashboard, got %d", resp.StatusCode)
	}
}

var (
	cellHref = regexp.MustCompile(`href="(/bookings/new\?[^"]+)"`)
	cardHref = regexp.MustCompile(`href="(/bookings/\d+/edit)"`)
)

func TestBuildHandlerFollowsCalendarLinks(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)

	hash, err := application.HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := h.SeedUser(testfixtures.NewUserFixture(testfixtures.WithUserPasswordHash(hash)))
	room := h.SeedRoom(testfixtures.NewRoomFixture(testfixtures.WithRoomName("Orion")))
	h.SeedBooking(testfixtures.NewBookingFixture(room.ID, user.ID, testfixtures.WithBookingPurpose("Design review")))

	server := httptest.NewUnstartedServer(nil)
	cfg := config.Default()
	cfg.SessionSecret = "test-secret"
	cfg.Location = testfixtures.Zone
	cfg.BackendBaseURL = "http://" + server.Listener.Addr().String()
	server.Config.Handler = buildHandler(cfg, h.Pool, testfixtures.ReferenceTime, quietLogger())
	server.Start()
	t.Cleanup(server.Close)

	client := server.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	resp, err := client.PostForm(server.URL+"/login", url.Values{"email": {user.Email}, "password": {"correct-horse-battery"}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	cookie := ""
	for _, c := range resp.Cookies() {
		if c.Name == "session_token" {
			cookie = c.Value
		}
	}
	if cookie == "" {
		t.Fatal("expected a session cookie")
	}

	// Each page may rotate the session, so always send the latest cookie.
	do := func(method, target string, form url.Values) (int, string, string) {
		t.Helper()
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, _ := http.NewRequest(method, server.URL+target, body)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		req.AddCookie(&http.Cookie{Name: "session_token", Value: cookie})
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, target, err)
		}
		defer resp.Body.Close()
		for _, c := range resp.Cookies() {
			if c.Name == "session_token" && c.Value != "" {
				cookie = c.Value
			}
		}
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, resp.Header.Get("Location"), string(data)
	}

	status, _, page := do(http.MethodGet, "/calendar", nil)
	if status != http.StatusOK {
		t.Fatalf("GET /calendar: %d", status)
	}
	cell := cellHref.FindStringSubmatch(page)
	card := cardHref.FindStringSubmatch(page)
	if cell == nil || card == nil {
		t.Fatalf("expected cell and card links in the grid:\n%s", page)
	}

	status, _, form := do(http.MethodGet, html.UnescapeString(cell[1]), nil)
	if status != http.StatusOK || !strings.Contains(form, `class="booking-form"`) {
		t.Fatalf("cell link %s: expected the booking form, got %d:\n%s", cell[1], status, form)
	}
	if !strings.Contains(form, "Orion") {
		t.Fatalf("expected the room picker to list Orion:\n%s", form)
	}

	status, _, form = do(http.MethodGet, card[1], nil)
	if status != http.StatusOK || !strings.Contains(form, `value="Design review"`) {
		t.Fatalf("card link %s: expected the prefilled form, got %d:\n%s", card[1], status, form)
	}

	status, location, _ := do(http.MethodPost, "/bookings/new", url.Values{
		"room_id":    {strconv.FormatInt(room.ID, 10)},
		"purpose":    {"Retro"},
		"start_date": {"2025-06-10"},
		"start_time": {"20:00"},
		"end_time":   {"21:00"},
	})
	if status != http.StatusSeeOther || location != "/calendar?date=2025-06-10&mode=day" {
		t.Fatalf("expected the new booking to redirect to its day, got %d %q", status, location)
	}
	if _, _, page = do(http.MethodGet, location, nil); !strings.Contains(page, "Retro") {
		t.Fatalf("expected the new booking on the calendar:\n%s", page)
	}
}

func TestTokenGenerator(t *testing.T) {
	next := newTokenGenerator("secret")
	first, second := next(), next()
	if len(first) != 64 || first == second {
		t.Fatalf("expected distinct hex tokens, got %q and %q", first, second)
	}
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := NewApp()
	var out bytes.Buffer
	app.root.SetOut(&out)
	app.root.SetErr(io.Discard)
	app.root.SetArgs(args)
	err := app.Execute(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Setenv(config.ConfigPathEnv, "")
	t.Setenv("SMARTSPACE_SESSION_SECRET", "cli-secret")
	t.Setenv("SMARTSPACE_SQLITE_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("SMARTSPACE_TIMEZONE", "Asia/Tokyo")
	t.Setenv("SMARTSPACE_LOG_LEVEL", "error")

	t.Run("version", func(t *testing.T) {
		out, err := runApp(t, "version")
		if err != nil || out != "smartspace dev (commit: none)\n" {
			t.Fatalf("version = %q, %v", out, err)
		}
	})

	t.Run("migrate", func(t *testing.T) {
		out, err := runApp(t, "migrate")
		if err != nil || out != "applied 2 migration(s)\n" {
			t.Fatalf("first migrate = %q, %v", out, err)
		}
		out, err = runApp(t, "migrate")
		if err != nil || out != "applied 0 migration(s)\n" {
			t.Fatalf("second migrate = %q, %v", out, err)
		}
		out, err = runApp(t, "migrate", "--status")
		if err != nil || strings.Count(out, "applied ") != 2 || !strings.Contains(out, "bookings and attendees") {
			t.Fatalf("status = %q, %v", out, err)
		}
	})

	t.Run("agenda", func(t *testing.T) {
		out, err := runApp(t, "agenda", "--date", "2025-06-10", "--no-color")
		if err != nil || out != "Tuesday, June 10 2025\n  no bookings\n" {
			t.Fatalf("agenda = %q, %v", out, err)
		}
		if _, err := runApp(t, "agenda", "--mode", "month"); err == nil {
			t.Fatal("month mode is not supported by the agenda")
		}
		if _, err := runApp(t, "agenda", "--date", "10/06/2025"); err == nil {
			t.Fatal("expected a date parse error")
		}
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("SMARTSPACE_SESSION_SECRET", "")
		if _, err := runApp(t, "migrate"); err == nil || !strings.Contains(err.Error(), "SMARTSPACE_SESSION_SECRET") {
			t.Fatalf("expected missing secret error, got %v", err)
		}
	})
}
