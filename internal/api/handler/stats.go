package handler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/daap14/turnstile/internal/analytics"
	"github.com/daap14/turnstile/internal/api/middleware"
	"github.com/daap14/turnstile/internal/api/response"
	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/event"
)

// StatsProvider computes event statistics.
type StatsProvider interface {
	EventStats(ctx context.Context, eventID int64, id *auth.Identity) (*analytics.Stats, error)
}

type hourlyEntryResponse struct {
	Hour      int    `json:"hour"`
	Count     int    `json:"count"`
	HourLabel string `json:"hourLabel"`
}

type flowPointResponse struct {
	Hour       int    `json:"hour"`
	Count      int    `json:"count"`
	Cumulative int    `json:"cumulative"`
	HourLabel  string `json:"hourLabel"`
}

type statsResponse struct {
	TotalRevenue      float64               `json:"totalRevenue"`
	AvgTicketPrice    float64               `json:"avgTicketPrice"`
	TotalCapacity     int                   `json:"totalCapacity"`
	TicketsSold       int                   `json:"ticketsSold"`
	TicketsAvailable  int                   `json:"ticketsAvailable"`
	TicketsScanned    int                   `json:"ticketsScanned"`
	AttendanceRatePct float64               `json:"attendanceRatePct"`
	HourlyBreakdown   []hourlyEntryResponse `json:"hourlyBreakdown"`
	PeakHour          *string               `json:"peakHour"`
	MaxHourCount      int                   `json:"maxHourCount"`
	CumulativeFlow    []flowPointResponse   `json:"cumulativeFlow"`
	EventStartHour    int                   `json:"eventStartHour"`
}

func toStatsResponse(s *analytics.Stats) statsResponse {
	out := statsResponse{
		TotalRevenue:      s.TotalRevenue,
		AvgTicketPrice:    s.AvgTicketPrice,
		TotalCapacity:     s.TotalCapacity,
		TicketsSold:       s.TicketsSold,
		TicketsAvailable:  s.TicketsAvailable,
		TicketsScanned:    s.TicketsScanned,
		AttendanceRatePct: math.Round(s.AttendanceRatePct*100) / 100,
		HourlyBreakdown:   make([]hourlyEntryResponse, 0, len(s.HourlyBreakdown)),
		MaxHourCount:      s.MaxHourCount,
		CumulativeFlow:    make([]flowPointResponse, 0, len(s.CumulativeFlow)),
		EventStartHour:    s.EventStartHour,
	}
	if s.PeakHour != nil {
		label := analytics.HourLabel(*s.PeakHour)
		out.PeakHour = &label
	}
	for _, h := range s.HourlyBreakdown {
		out.HourlyBreakdown = append(out.HourlyBreakdown, hourlyEntryResponse{Hour: h.Hour, Count: h.Count, HourLabel: h.Label()})
	}
	for _, p := range s.CumulativeFlow {
		out.CumulativeFlow = append(out.CumulativeFlow, flowPointResponse{Hour: p.Hour, Count: p.Count, Cumulative: p.Cumulative, HourLabel: p.Label()})
	}
	return out
}

// StatsHandler handles GET /events/{id}/stats.
type StatsHandler struct {
	stats StatsProvider
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats StatsProvider) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// ServeHTTP returns the statistics of the event. Only its creator may read them.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	eventID, ok := pathID(w, r, "id", requestID)
	if !ok {
		return
	}

	stats, err := h.stats.EventStats(r.Context(), eventID, identity)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrEventNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Event not found", requestID)
		case errors.Is(err, analytics.ErrForbidden):
			response.Err(w, http.StatusForbidden, "FORBIDDEN", "Only the event creator can view statistics", requestID)
		default:
			slog.Error("failed to compute event stats", "error", err, "eventId", eventID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute statistics", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, toStatsResponse(stats), requestID)
}
