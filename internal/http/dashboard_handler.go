package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/smartspace/internal/application"
)

type dashboardService interface {
	TodayStats(ctx context.Context, principal application.Principal) (application.DashboardStats, error)
}

type DashboardHandler struct {
	service   dashboardService
	loc       *time.Location
	responder responder
	logger    *slog.Logger
}

func NewDashboardHandler(service dashboardService, loc *time.Location, logger *slog.Logger) *DashboardHandler {
	if loc == nil {
		loc = time.Local
	}
	base := defaultLogger(logger)
	return &DashboardHandler{service: service, loc: loc, responder: newResponder(base), logger: base}
}

func (h *DashboardHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "DashboardHandler", operation, attrs...)
}

// Today handles GET /admin/dashboard.
func (h *DashboardHandler) Today(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Today")

	stats, err := h.service.TodayStats(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "dashboard stats failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	upcoming := make([]bookingDTO, 0, len(stats.Upcoming))
	for _, b := range stats.Upcoming {
		upcoming = append(upcoming, newBookingDTO(b, h.loc))
	}

	logger.With("total", stats.Total).InfoContext(r.Context(), "dashboard stats served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dashboardResponse{
		Date:       stats.Date.In(h.loc).Format(time.DateOnly),
		Total:      stats.Total,
		ByStatus:   byStatus,
		RoomsInUse: stats.RoomsInUse,
		Upcoming:   upcoming,
	})
}

type dashboardResponse struct {
	Date       string         `json:"date"`
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	RoomsInUse int            `json:"rooms_in_use"`
	Upcoming   []bookingDTO   `json:"upcoming"`
}
