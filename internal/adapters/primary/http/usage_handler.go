package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/services"
)

// TeamUsageDTO is one row of the usage report.
type TeamUsageDTO struct {
	TeamID    string `json:"teamId"`
	TeamName  string `json:"teamName"`
	Created   int    `json:"created"`
	Pending   int    `json:"pending"`
	Resolved  int    `json:"resolved"`
	Remaining int    `json:"remaining"`
}

// UsageResponse is the staff overview of today's wildcards.
type UsageResponse struct {
	Since                 string         `json:"since"`
	DailyLimit            int            `json:"dailyLimit"`
	Created               int            `json:"created"`
	Pending               int            `json:"pending"`
	Resolved              int            `json:"resolved"`
	ExhaustedTeams        int            `json:"exhaustedTeams"`
	MeanResolutionSeconds int64          `json:"meanResolutionSeconds"`
	Teams                 []TeamUsageDTO `json:"teams"`
}

func toUsageResponse(report *domain.UsageReport) UsageResponse {
	teams := make([]TeamUsageDTO, 0, len(report.Teams))
	for _, team := range report.Teams {
		teams = append(teams, TeamUsageDTO{
			TeamID:    team.TeamID.String(),
			TeamName:  team.TeamName,
			Created:   team.Created,
			Pending:   team.Pending,
			Resolved:  team.Resolved,
			Remaining: team.Remaining,
		})
	}

	return UsageResponse{
		Since:                 report.Since.Format(time.RFC3339),
		DailyLimit:            report.DailyLimit,
		Created:               report.Created,
		Pending:               report.Pending,
		Resolved:              report.Resolved,
		ExhaustedTeams:        report.Exhausted,
		MeanResolutionSeconds: int64(report.MeanResolution / time.Second),
		Teams:                 teams,
	}
}

// UsageHandler serves the daily usage report.
type UsageHandler struct {
	usage        ports.UsageService
	viewers      *viewerContext
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewUsageHandler(
	usage ports.UsageService,
	identity ports.IdentityService,
	authz ports.AuthorizationService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *UsageHandler {
	return &UsageHandler{
		usage: usage,
		viewers: &viewerContext{
			identity:     identity,
			authz:        authz,
			errorHandler: errorHandler,
		},
		errorHandler: errorHandler,
		logger:       logger.With("handler", "usage"),
	}
}

func (h *UsageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleReport)
}

// HandleReport handles GET /usage
func (h *UsageHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	_, r, ok := h.viewers.require(w, r, services.PermWildcardsUsage)
	if !ok {
		return
	}

	report, err := h.usage.Report(r.Context())
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, toUsageResponse(report))
}
