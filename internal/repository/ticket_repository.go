package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdex/helpdex/internal/domain"
)

// ErrVersionConflict is returned when an optimistic update loses the race:
// the row's version moved since the caller read it.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketScope restricts queries to the tickets a role may see. Both fields
// nil means unrestricted (QA).
type TicketScope struct {
	CreatedBy  *string
	AssignedTo *string
}

// TicketFilter captures list parameters.
type TicketFilter struct {
	Scope       TicketScope
	Statuses    []domain.Status
	Priorities  []domain.Priority
	CategoryID  *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	// Update persists the ticket with a compare-and-swap on Version; on
	// success the in-memory Version is incremented. Returns
	// ErrVersionConflict when the stored version no longer matches.
	Update(ctx context.Context, ticket *domain.Ticket) error
	CountByStatus(ctx context.Context, scope TicketScope) (map[domain.Status]int, error)
	ListByDeadline(ctx context.Context, scope TicketScope, from, to time.Time) ([]domain.Ticket, error)
	ListOverdue(ctx context.Context, scope TicketScope, now time.Time) ([]domain.Ticket, error)
	ListRecentlyAssigned(ctx context.Context, developerID string, limit int) ([]domain.Ticket, error)
	// ResolutionStats averages resolved_at-created_at in milliseconds over
	// Resolved tickets, optionally within [from, to). Both bounds set or
	// both nil; the caller validates the window.
	ResolutionStats(ctx context.Context, from, to *time.Time) (avgMillis int64, count int, err error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, priority, status, category_id, created_by,
               assigned_to, assigned_by, closed_by, assigned_at, resolved_at, closed_at,
               reopened_at, deadline, version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, priority, status, category_id, created_by, deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CategoryID,
		ticket.CreatedBy,
		ticket.Deadline,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, status=$4, category_id=$5,
            assigned_to=$6, assigned_by=$7, closed_by=$8, assigned_at=$9, resolved_at=$10,
            closed_at=$11, reopened_at=$12, deadline=$13, version=version+1, updated_at=NOW()
        WHERE id=$14 AND version=$15`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CategoryID,
		ticket.AssignedTo,
		ticket.AssignedBy,
		ticket.ClosedBy,
		ticket.AssignedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ReopenedAt,
		ticket.Deadline,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	appendScope(&clauses, &args, filter.Scope)
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) CountByStatus(ctx context.Context, scope TicketScope) (map[domain.Status]int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	appendScope(&clauses, &args, scope)

	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM tickets WHERE %s GROUP BY status`,
		strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) ListByDeadline(ctx context.Context, scope TicketScope, from, to time.Time) ([]domain.Ticket, error) {
	clauses := []string{"deadline IS NOT NULL"}
	args := []any{}
	appendScope(&clauses, &args, scope)
	args = append(args, from)
	clauses = append(clauses, fmt.Sprintf("deadline >= $%d", len(args)))
	args = append(args, to)
	clauses = append(clauses, fmt.Sprintf("deadline <= $%d", len(args)))

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY deadline ASC`,
		ticketColumns, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOverdue(ctx context.Context, scope TicketScope, now time.Time) ([]domain.Ticket, error) {
	clauses := []string{"deadline IS NOT NULL"}
	args := []any{}
	appendScope(&clauses, &args, scope)
	args = append(args, now)
	clauses = append(clauses, fmt.Sprintf("deadline < $%d", len(args)))
	args = append(args, domain.StatusResolved)
	args = append(args, domain.StatusClosed)
	clauses = append(clauses, fmt.Sprintf("status NOT IN ($%d,$%d)", len(args)-1, len(args)))

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY deadline ASC`,
		ticketColumns, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListRecentlyAssigned(ctx context.Context, developerID string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 3
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets
        WHERE assigned_to=$1 AND assigned_at IS NOT NULL
        ORDER BY assigned_at DESC LIMIT %d`, ticketColumns, limit)
	rows, err := r.pool.Query(ctx, query, developerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ResolutionStats(ctx context.Context, from, to *time.Time) (int64, int, error) {
	clauses := []string{"status=$1", "resolved_at IS NOT NULL"}
	args := []any{domain.StatusResolved}
	if from != nil && to != nil {
		args = append(args, *from)
		clauses = append(clauses, fmt.Sprintf("resolved_at >= $%d", len(args)))
		args = append(args, *to)
		clauses = append(clauses, fmt.Sprintf("resolved_at < $%d", len(args)))
	}

	query := fmt.Sprintf(`
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)) * 1000), 0)::BIGINT, COUNT(*)
        FROM tickets WHERE %s`, strings.Join(clauses, " AND "))

	var avgMillis int64
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&avgMillis, &count); err != nil {
		return 0, 0, err
	}
	return avgMillis, count, nil
}

func appendScope(clauses *[]string, args *[]any, scope TicketScope) {
	if scope.CreatedBy != nil {
		*args = append(*args, *scope.CreatedBy)
		*clauses = append(*clauses, fmt.Sprintf("created_by=$%d", len(*args)))
	}
	if scope.AssignedTo != nil {
		*args = append(*args, *scope.AssignedTo)
		*clauses = append(*clauses, fmt.Sprintf("assigned_to=$%d", len(*args)))
	}
}

func ticketFields(ticket *domain.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CategoryID,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.AssignedBy,
		&ticket.ClosedBy,
		&ticket.AssignedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.ReopenedAt,
		&ticket.Deadline,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
