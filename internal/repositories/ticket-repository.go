package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"turnos-api/internal/entities"
	apperrors "turnos-api/pkg/errors"
)

const ticketTable = "tickets"

const pgUniqueViolation = "23505"

var ticketColumns = []string{
	"t.id", "t.branch_id", "t.name", "t.age", "t.phone", "t.state",
	"t.created_at", "t.started_at", "t.updated_at",
}

// Обслуживаемый тикет всегда впереди, дальше ожидающие от старых к новым.
var queueOrder = []string{"(t.state = 'serving') DESC", "t.created_at ASC", "t.id ASC"}

type TicketRepositoryInterface interface {
	Create(ctx context.Context, ticket entities.NewTicket) (int64, error)
	Start(ctx context.Context, id int64) (entities.TransitionResult, error)
	Finish(ctx context.Context, id int64) (entities.TransitionResult, error)
	HeadOfQueue(ctx context.Context, branchID int64) (*entities.Ticket, error)
	GetQueue(ctx context.Context, branchID int64) ([]entities.Ticket, error)
	FindByID(ctx context.Context, id int64) (*entities.Ticket, error)
}

type TicketRepository struct {
	storage   Querier
	txManager TxManagerInterface
	timeout   time.Duration
	logger    *zap.Logger
}

func NewTicketRepository(storage *pgxpool.Pool, txManager TxManagerInterface, timeout time.Duration, logger *zap.Logger) TicketRepositoryInterface {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TicketRepository{
		storage:   storage,
		txManager: txManager,
		timeout:   timeout,
		logger:    logger.Named("ticket_repository"),
	}
}

// -----------------------------------------------------------
// SCAN
// -----------------------------------------------------------

func scanTicket(row pgx.Row) (*entities.Ticket, error) {
	var t entities.Ticket
	var state string
	var phone *string
	var startedAt *time.Time

	err := row.Scan(
		&t.ID, &t.BranchID, &t.Name, &t.Age, &phone, &state,
		&t.CreatedAt, &startedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования ticket: %w", err)
	}

	t.State = entities.TicketState(state)
	t.Phone = null.StringFromPtr(phone)
	t.StartedAt = null.TimeFromPtr(startedAt)
	return &t, nil
}

func (r *TicketRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// -----------------------------------------------------------
// WRITE
// -----------------------------------------------------------

func (r *TicketRepository) Create(ctx context.Context, ticket entities.NewTicket) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO tickets (branch_id, name, age, phone, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'waiting', NOW(), NOW())
		RETURNING id
	`
	var newID int64
	err := r.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query,
			ticket.BranchID, ticket.Name, ticket.Age, ticket.Phone.Ptr(),
		).Scan(&newID)
	})
	if err != nil {
		return 0, apperrors.NewPersistenceError("create ticket", err)
	}
	return newID, nil
}

// Start переводит waiting -> serving одним условным UPDATE.
// Если тикет не в waiting или в филиале уже кто-то обслуживается - no-op.
func (r *TicketRepository) Start(ctx context.Context, id int64) (entities.TransitionResult, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE tickets AS t
		SET state = 'serving', started_at = NOW(), updated_at = NOW()
		WHERE t.id = $1
		  AND t.state = 'waiting'
		  AND NOT EXISTS (
		      SELECT 1 FROM tickets s
		      WHERE s.branch_id = t.branch_id AND s.state = 'serving'
		  )
		RETURNING t.branch_id
	`
	result := entities.TransitionResult{TicketID: id}
	err := r.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query, id).Scan(&result.BranchID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		result.Changed = true
		return nil
	})
	if isUniqueViolation(err) {
		// параллельный старт в том же филиале успел раньше
		r.logger.Debug("Старт тикета отклонён: в филиале уже есть обслуживаемый", zap.Int64("ticketID", id))
		return entities.TransitionResult{TicketID: id}, nil
	}
	if err != nil {
		return entities.TransitionResult{}, apperrors.NewPersistenceError("start ticket", err)
	}
	return result, nil
}

// Finish переводит waiting|serving -> finished. Несуществующий id - ErrNotFound,
// уже завершённый тикет не трогаем (no-op).
func (r *TicketRepository) Finish(ctx context.Context, id int64) (entities.TransitionResult, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		WITH target AS (
			SELECT id, branch_id, state FROM tickets WHERE id = $1 FOR UPDATE
		), updated AS (
			UPDATE tickets AS t
			SET state = 'finished', updated_at = NOW()
			FROM target
			WHERE t.id = target.id AND target.state IN ('waiting', 'serving')
			RETURNING t.id
		)
		SELECT target.branch_id, EXISTS (SELECT 1 FROM updated)
		FROM target
	`
	result := entities.TransitionResult{TicketID: id}
	err := r.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query, id).Scan(&result.BranchID, &result.Changed)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return err
	})
	if errors.Is(err, apperrors.ErrNotFound) {
		return entities.TransitionResult{}, apperrors.ErrNotFound
	}
	if err != nil {
		return entities.TransitionResult{}, apperrors.NewPersistenceError("finish ticket", err)
	}
	return result, nil
}

// -----------------------------------------------------------
// READ
// -----------------------------------------------------------

func activeQueue(branchID int64) sq.SelectBuilder {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	return psql.Select(ticketColumns...).
		From(ticketTable + " AS t").
		Where(sq.Eq{
			"t.branch_id": branchID,
			"t.state":     []string{string(entities.TicketWaiting), string(entities.TicketServing)},
		}).
		OrderBy(queueOrder...)
}

func (r *TicketRepository) HeadOfQueue(ctx context.Context, branchID int64) (*entities.Ticket, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := activeQueue(branchID).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	ticket, err := scanTicket(r.storage.QueryRow(ctx, query, args...))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("head of queue", err)
	}
	return ticket, nil
}

func (r *TicketRepository) GetQueue(ctx context.Context, branchID int64) ([]entities.Ticket, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := activeQueue(branchID).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewPersistenceError("get queue", err)
	}
	defer rows.Close()

	tickets := make([]entities.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError("get queue", err)
		}
		tickets = append(tickets, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("get queue", err)
	}
	return tickets, nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id int64) (*entities.Ticket, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(ticketColumns...).
		From(ticketTable + " AS t").
		Where(sq.Eq{"t.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	ticket, err := scanTicket(r.storage.QueryRow(ctx, query, args...))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("find ticket", err)
	}
	return ticket, nil
}
