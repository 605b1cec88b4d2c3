package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdex/helpdex/internal/domain"
	"github.com/helpdex/helpdex/internal/repository"
	apperrors "github.com/helpdex/helpdex/pkg/util"
)

// upcomingWindow is how far ahead a deadline counts as upcoming.
const upcomingWindow = 5 * 24 * time.Hour

// Summary is the role-scoped dashboard view.
type Summary struct {
	StatusCounts     map[domain.Status]int `json:"status_counts"`
	Upcoming         []domain.Ticket       `json:"upcoming"`
	Overdue          []domain.Ticket       `json:"overdue,omitempty"`
	RecentlyAssigned []domain.Ticket       `json:"recently_assigned,omitempty"`
}

// ResolutionReport is the average-resolution-time view.
type ResolutionReport struct {
	AvgMillis   int64
	AvgReadable string
	Count       int
}

// SummaryService computes the read-side dashboard aggregations with a
// best-effort Redis cache in front; correctness never depends on the cache.
type SummaryService struct {
	tickets repository.TicketRepository
	cache   *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
}

// NewSummaryService constructs the service. cache may be nil.
func NewSummaryService(tickets repository.TicketRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *SummaryService {
	return &SummaryService{
		tickets: tickets,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// GetSummary computes the dashboard summary for the actor's role: status
// counts, upcoming deadlines, overdue tickets (developer/QA) and the three
// most recently assigned tickets (developer).
func (s *SummaryService) GetSummary(ctx context.Context, actor *domain.User) (*Summary, error) {
	scope, err := scopeForActor(actor)
	if err != nil {
		return nil, err
	}

	if cached := s.cacheGet(ctx, actor); cached != nil {
		return cached, nil
	}

	now := time.Now()
	counts, err := s.tickets.CountByStatus(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	upcoming, err := s.tickets.ListByDeadline(ctx, scope, now, now.Add(upcomingWindow))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	summary := &Summary{
		StatusCounts: counts,
		Upcoming:     upcoming,
	}
	if actor.Role == domain.RoleDeveloper || actor.Role == domain.RoleQA {
		overdue, err := s.tickets.ListOverdue(ctx, scope, now)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		summary.Overdue = overdue
	}
	if actor.Role == domain.RoleDeveloper {
		recent, err := s.tickets.ListRecentlyAssigned(ctx, actor.ID, 3)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		summary.RecentlyAssigned = recent
	}

	s.cacheSet(ctx, actor, summary)
	return summary, nil
}

// AverageResolutionTime reports the mean time from creation to resolution
// over Resolved tickets, optionally within an inclusive day window. The
// window must be fully specified or fully absent.
func (s *SummaryService) AverageResolutionTime(ctx context.Context, actor *domain.User, from, to *time.Time) (*ResolutionReport, error) {
	if actor.Role != domain.RoleQA {
		return nil, apperrors.NewForbidden("only QA can view resolution metrics")
	}
	if (from == nil) != (to == nil) {
		return nil, apperrors.NewValidationError("both from and to are required when filtering by date", nil)
	}

	var lower, upper *time.Time
	if from != nil {
		if to.Before(*from) {
			return nil, apperrors.NewValidationError("to must not precede from", nil)
		}
		start := from.Truncate(24 * time.Hour)
		// Inclusive of the whole "to" day: upper bound is the following midnight.
		end := to.Truncate(24 * time.Hour).Add(24 * time.Hour)
		lower, upper = &start, &end
	}

	avgMillis, count, err := s.tickets.ResolutionStats(ctx, lower, upper)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	report := &ResolutionReport{
		AvgMillis: avgMillis,
		Count:     count,
	}
	if count == 0 {
		report.AvgMillis = 0
		report.AvgReadable = "-"
	} else {
		report.AvgReadable = formatMillis(avgMillis)
	}
	return report, nil
}

// formatMillis renders a duration as "{d}d {h}h {m}m", omitting zero units.
func formatMillis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	days := ms / (24 * 60 * 60 * 1000)
	hours := ms / (60 * 60 * 1000) % 24
	minutes := ms / (60 * 1000) % 60

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}

func (s *SummaryService) cacheKey(actor *domain.User) string {
	return fmt.Sprintf("helpdex:summary:%s:%s", actor.Role, actor.ID)
}

func (s *SummaryService) cacheGet(ctx context.Context, actor *domain.User) *Summary {
	if s.cache == nil || s.ttl <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(actor)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("summary cache read failed", zap.Error(err))
		}
		return nil
	}
	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		s.logger.Warn("summary cache decode failed", zap.Error(err))
		return nil
	}
	return &summary
}

func (s *SummaryService) cacheSet(ctx context.Context, actor *domain.User, summary *Summary) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(actor), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("summary cache write failed", zap.Error(err))
	}
}
