package services

import (
	"context"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
)

// UsageService builds the staff view of today's wildcard consumption.
type UsageService struct {
	usage  ports.UsageRepository
	ledger *QuotaLedger
}

var _ ports.UsageService = (*UsageService)(nil)

// NewUsageService creates a usage service over the ledger's quota window.
func NewUsageService(usage ports.UsageRepository, ledger *QuotaLedger) *UsageService {
	return &UsageService{usage: usage, ledger: ledger}
}

// Report aggregates the current window. Teams without tickets are included
// with their full allowance.
func (s *UsageService) Report(ctx context.Context) (*domain.UsageReport, error) {
	since := s.ledger.DayStart()

	teams, err := s.usage.TeamUsageSince(ctx, since)
	if err != nil {
		return nil, err
	}

	mean, err := s.usage.MeanResolutionSince(ctx, since)
	if err != nil {
		return nil, err
	}

	return domain.NewUsageReport(since, s.ledger.Limit(), teams, mean), nil
}
