package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/primary/validation"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/services"
)

// WildcardHandler handles HTTP requests for help requests ("wildcards").
type WildcardHandler struct {
	ticketService ports.TicketService
	viewers       *viewerContext
	errorHandler  *ErrorHandler
	createLimiter func(http.Handler) http.Handler
	logger        *slog.Logger
}

// NewWildcardHandler creates a new wildcard handler. createLimiter, when
// not nil, wraps only the create route.
func NewWildcardHandler(
	ticketService ports.TicketService,
	identity ports.IdentityService,
	authz ports.AuthorizationService,
	errorHandler *ErrorHandler,
	createLimiter func(http.Handler) http.Handler,
	logger *slog.Logger,
) *WildcardHandler {
	return &WildcardHandler{
		ticketService: ticketService,
		viewers: &viewerContext{
			identity:     identity,
			authz:        authz,
			errorHandler: errorHandler,
		},
		errorHandler:  errorHandler,
		createLimiter: createLimiter,
		logger:        logger.With("handler", "wildcard"),
	}
}

// Router sets up a new chi Router for all wildcard routes.
func (h *WildcardHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all wildcard endpoints.
func (h *WildcardHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.createLimiter != nil {
			r.Use(h.createLimiter)
		}
		r.Post("/", h.HandleCreate)
	})

	r.Get("/quota", h.HandleQuota)
	r.Get("/mine", h.HandleListMine)
	r.Get("/unresolved", h.HandleListUnresolved)
	r.Post("/{ticketID}/resolve", h.HandleResolve)
}

// --- Request/Response DTOs ---

// CreateWildcardRequest defines the expected JSON body for raising a wildcard
type CreateWildcardRequest struct {
	Message string `json:"message"`
}

// Validate validates the create wildcard request
func (r *CreateWildcardRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("message", r.Message).
		MaxLength("message", r.Message, domain.MaxMessageLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TicketDTO defines the JSON response for help requests.
type TicketDTO = domain.TicketSnapshot

// CreateWildcardResponse carries the new ticket and the team's quota after it.
type CreateWildcardResponse struct {
	Ticket TicketDTO    `json:"ticket"`
	Quota  domain.Quota `json:"quota"`
}

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	return domain.NewTicketSnapshot(ticket)
}

func toTicketDTOs(tickets []*domain.Ticket) []TicketDTO {
	dtos := make([]TicketDTO, len(tickets))
	for i, ticket := range tickets {
		dtos[i] = toTicketDTO(ticket)
	}
	return dtos
}

// --- Handlers ---

// HandleCreate handles POST /wildcards
func (h *WildcardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	viewer, r, ok := h.viewers.require(w, r, services.PermWildcardsCreate)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateWildcardRequest](r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.ticketService.CreateTicket(r.Context(), ports.CreateTicketParams{
		TeamID:    viewer.Team(),
		CreatorID: viewer.UserID,
		Message:   req.Message,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "wildcard created",
		"ticket_id", result.Ticket.ID,
		"remaining", result.Quota.Remaining,
	)

	WriteCreated(w, CreateWildcardResponse{
		Ticket: toTicketDTO(result.Ticket),
		Quota:  result.Quota,
	})
}

// HandleQuota handles GET /wildcards/quota
func (h *WildcardHandler) HandleQuota(w http.ResponseWriter, r *http.Request) {
	viewer, r, ok := h.viewers.require(w, r, services.PermWildcardsReadOwn)
	if !ok {
		return
	}

	quota, err := h.ticketService.GetQuota(r.Context(), viewer.Team())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, quota)
}

// HandleListMine handles GET /wildcards/mine
func (h *WildcardHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	viewer, r, ok := h.viewers.require(w, r, services.PermWildcardsReadOwn)
	if !ok {
		return
	}

	tickets, err := h.ticketService.ListTeamTickets(r.Context(), viewer.Team())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toTicketDTOs(tickets))
}

// HandleListUnresolved handles GET /wildcards/unresolved
func (h *WildcardHandler) HandleListUnresolved(w http.ResponseWriter, r *http.Request) {
	_, r, ok := h.viewers.require(w, r, services.PermWildcardsListUnresolved)
	if !ok {
		return
	}

	tickets, err := h.ticketService.ListUnresolved(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteList(w, toTicketDTOs(tickets))
}

// HandleResolve handles POST /wildcards/{ticketID}/resolve
func (h *WildcardHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	viewer, r, ok := h.viewers.require(w, r, services.PermWildcardsResolve)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	ticket, err := h.ticketService.ResolveTicket(r.Context(), ticketID, viewer.UserID)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	h.logger.InfoContext(r.Context(), "wildcard resolved", "ticket_id", ticket.ID)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// --- Helper methods ---

// parseTicketID extracts and validates the ticket ID from the URL
func (h *WildcardHandler) parseTicketID(r *http.Request) (uuid.UUID, error) {
	ticketID, err := uuid.Parse(chi.URLParam(r, "ticketID"))
	if err != nil || ticketID == uuid.Nil {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return uuid.Nil, v.Errors()
	}
	return ticketID, nil
}
