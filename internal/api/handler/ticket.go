package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/turnstile/internal/api/middleware"
	"github.com/daap14/turnstile/internal/api/response"
	"github.com/daap14/turnstile/internal/api/validation"
	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/event"
	"github.com/daap14/turnstile/internal/ticket"
)

// maxScanBodyBytes bounds scan payloads; a QR code never comes close.
const maxScanBodyBytes = 4 << 10

// TicketIssuer issues tickets under capacity.
type TicketIssuer interface {
	Issue(ctx context.Context, req ticket.IssueRequest) (*ticket.Purchase, error)
}

// TicketScanner validates and reactivates tickets.
type TicketScanner interface {
	Scan(ctx context.Context, raw string, id *auth.Identity) ticket.ScanResult
	Reactivate(ctx context.Context, ticketID int64, id *auth.Identity) (*ticket.Ticket, error)
}

// TicketLister reads tickets with their event summary.
type TicketLister interface {
	GetDetail(ctx context.Context, id int64) (*ticket.HolderTicket, error)
	ListByHolder(ctx context.Context, holderID int64) ([]ticket.HolderTicket, error)
}

type issuedTicketResponse struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	AttendeeName string `json:"attendeeName"`
	EventID      int64  `json:"eventId"`
}

type purchaseResponse struct {
	Tickets  []issuedTicketResponse `json:"tickets"`
	Quantity int                    `json:"quantity"`
	Total    float64                `json:"total"`
}

type holderTicketResponse struct {
	ID           int64              `json:"id"`
	Code         string             `json:"code"`
	AttendeeName string             `json:"attendeeName"`
	State        string             `json:"state"`
	ScannedAt    *string            `json:"scannedAt"`
	Event        ticketEventSummary `json:"event"`
}

type ticketEventSummary struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	StartsAt string   `json:"startsAt"`
	Price    *float64 `json:"price"`
}

type ticketStateResponse struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	EventID   int64   `json:"eventId"`
	State     string  `json:"state"`
	ScannedAt *string `json:"scannedAt"`
}

type scanResponse struct {
	Status       string `json:"status"`
	Color        string `json:"color"`
	Message      string `json:"message"`
	Code         string `json:"code"`
	TicketID     *int64 `json:"ticketId"`
	AttendeeName string `json:"attendeeName,omitempty"`
	EventName    string `json:"eventName,omitempty"`
}

func toHolderTicketResponse(t *ticket.HolderTicket) holderTicketResponse {
	return holderTicketResponse{
		ID:           t.ID,
		Code:         t.Code,
		AttendeeName: t.Attendee(),
		State:        string(t.State),
		ScannedAt:    formatTimePtr(t.ScannedAt),
		Event: ticketEventSummary{
			ID:       t.EventID,
			Name:     t.EventName,
			StartsAt: formatTime(t.EventStartsAt),
			Price:    t.EventPrice,
		},
	}
}

func toScanResponse(res ticket.ScanResult) scanResponse {
	out := scanResponse{
		Status:       res.Status(),
		Color:        res.Color(),
		Message:      res.Message,
		Code:         res.Code,
		AttendeeName: res.AttendeeName,
		EventName:    res.EventName,
	}
	if res.TicketID != 0 {
		id := res.TicketID
		out.TicketID = &id
	}
	return out
}

// TicketHandler handles purchase, scan and ticket listing endpoints.
type TicketHandler struct {
	issuer    TicketIssuer
	scanner   TicketScanner
	lister    TicketLister
	validator *validation.Validator
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(issuer TicketIssuer, scanner TicketScanner, lister TicketLister, v *validation.Validator) *TicketHandler {
	return &TicketHandler{
		issuer:    issuer,
		scanner:   scanner,
		lister:    lister,
		validator: v,
	}
}

// Purchase handles POST /events/{id}/tickets.
func (h *TicketHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	eventID, ok := pathID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req validation.PurchaseRequest
	if !decodeJSON(w, r, &req, true, requestID) {
		return
	}
	if fieldErrors := h.validator.Struct(req); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	purchase, err := h.issuer.Issue(r.Context(), ticket.IssueRequest{
		EventID:       eventID,
		Quantity:      req.QuantityOrDefault(),
		AttendeeNames: req.AttendeeNames,
		Holder:        identity,
	})
	if err != nil {
		writeIssueError(w, err, eventID, requestID)
		return
	}

	items := make([]issuedTicketResponse, 0, len(purchase.Tickets))
	for i := range purchase.Tickets {
		t := &purchase.Tickets[i]
		items = append(items, issuedTicketResponse{
			ID:           t.ID,
			Code:         t.Code,
			AttendeeName: t.Attendee(),
			EventID:      t.EventID,
		})
	}

	response.Success(w, http.StatusCreated, purchaseResponse{
		Tickets:  items,
		Quantity: purchase.Quantity,
		Total:    purchase.Total,
	}, requestID)
}

func writeIssueError(w http.ResponseWriter, err error, eventID int64, requestID string) {
	var capErr *ticket.CapacityError
	switch {
	case errors.Is(err, event.ErrEventNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Event not found", requestID)
	case errors.As(err, &capErr):
		response.ErrWithDetails(w, http.StatusConflict, "CAPACITY_EXCEEDED",
			fmt.Sprintf("Only %d available", capErr.Remaining),
			map[string]int{"remaining": capErr.Remaining}, requestID)
	case errors.Is(err, ticket.ErrInvalidQuantity):
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "quantity", Message: "quantity must be at least 1"}}, requestID)
	case errors.Is(err, ticket.ErrSalesPaused):
		response.Err(w, http.StatusConflict, "SALES_PAUSED", "Ticket sales are paused for this event", requestID)
	case errors.Is(err, ticket.ErrEventFinished):
		response.Err(w, http.StatusConflict, "EVENT_FINISHED", "This event has already started", requestID)
	case errors.Is(err, ticket.ErrSalesClosed):
		response.Err(w, http.StatusConflict, "SALES_CLOSED", "Ticket sales have closed for this event", requestID)
	case errors.Is(err, ticket.ErrCodeCollision):
		slog.Warn("ticket codes kept colliding", "eventId", eventID)
		response.Err(w, http.StatusServiceUnavailable, "TRY_AGAIN", "Could not reserve ticket codes, please retry", requestID)
	default:
		slog.Error("failed to issue tickets", "error", err, "eventId", eventID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue tickets", requestID)
	}
}

// Mine handles GET /tickets/mine.
func (h *TicketHandler) Mine(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	tickets, err := h.lister.ListByHolder(r.Context(), identity.UserID)
	if err != nil {
		slog.Error("failed to list tickets", "error", err, "userId", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list tickets", requestID)
		return
	}

	items := make([]holderTicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, toHolderTicketResponse(&tickets[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// Detail handles GET /tickets/{id}. The holder, admins and scanners may read it.
func (h *TicketHandler) Detail(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	ticketID, ok := pathID(w, r, "id", requestID)
	if !ok {
		return
	}

	t, err := h.lister.GetDetail(r.Context(), ticketID)
	if err != nil {
		if errors.Is(err, ticket.ErrTicketNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Ticket not found", requestID)
			return
		}
		slog.Error("failed to get ticket", "error", err, "ticketId", ticketID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get ticket", requestID)
		return
	}

	if !t.VisibleTo(identity) {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Not allowed to view this ticket", requestID)
		return
	}

	response.Success(w, http.StatusOK, toHolderTicketResponse(t), requestID)
}

// Scan handles POST /tickets/scan. The body is normally {"code": "..."}, but a
// bare or quoted code is accepted too.
func (h *TicketHandler) Scan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxScanBodyBytes))
	if err != nil {
		requestID := middleware.GetRequestID(r.Context())
		response.Err(w, http.StatusBadRequest, "INVALID_BODY", "Could not read request body", requestID)
		return
	}

	raw := string(body)
	var req struct {
		Code   string `json:"code"`
		Codigo string `json:"codigo"`
	}
	if json.Unmarshal(body, &req) == nil {
		switch {
		case req.Code != "":
			raw = req.Code
		case req.Codigo != "":
			raw = req.Codigo
		}
	}

	h.scan(w, r, raw)
}

// ScanPath handles POST /tickets/scan/{code}.
func (h *TicketHandler) ScanPath(w http.ResponseWriter, r *http.Request) {
	h.scan(w, r, chi.URLParam(r, "code"))
}

func (h *TicketHandler) scan(w http.ResponseWriter, r *http.Request, raw string) {
	identity := middleware.GetIdentity(r.Context())
	res := h.scanner.Scan(r.Context(), raw, identity)
	response.Raw(w, http.StatusOK, toScanResponse(res))
}

// Reactivate handles POST /tickets/{id}/reactivate.
func (h *TicketHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	ticketID, ok := pathID(w, r, "id", requestID)
	if !ok {
		return
	}

	t, err := h.scanner.Reactivate(r.Context(), ticketID, identity)
	if err != nil {
		switch {
		case errors.Is(err, ticket.ErrTicketNotFound), errors.Is(err, event.ErrEventNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Ticket not found", requestID)
		case errors.Is(err, ticket.ErrForbidden):
			response.Err(w, http.StatusForbidden, "FORBIDDEN", "Only the event creator or an admin can reactivate tickets", requestID)
		case errors.Is(err, ticket.ErrTicketNotUsed):
			response.Err(w, http.StatusConflict, "TICKET_NOT_USED", "Ticket has not been used", requestID)
		default:
			slog.Error("failed to reactivate ticket", "error", err, "ticketId", ticketID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reactivate ticket", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, ticketStateResponse{
		ID:        t.ID,
		Code:      t.Code,
		EventID:   t.EventID,
		State:     string(t.State),
		ScannedAt: formatTimePtr(t.ScannedAt),
	}, requestID)
}
