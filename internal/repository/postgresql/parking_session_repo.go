package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/repository"
)

const sessionColumns = `id, plate_text, slot, entry_time, exit_time, hourly_rate, is_paid, qr_code_path, created_at, updated_at`

const defaultFindLimit = 100

type pgParkingSessionRepository struct {
	db *sql.DB
}

func NewPgParkingSessionRepository(db *sql.DB) repository.ParkingSessionRepository {
	return &pgParkingSessionRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.ParkingSession, error) {
	s := &domain.ParkingSession{}
	if err := row.Scan(
		&s.ID, &s.PlateText, &s.Slot, &s.EntryTime, &s.ExitTime,
		&s.HourlyRate, &s.IsPaid, &s.QRCodePath, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	normalizeTimes(s)
	return s, nil
}

func normalizeTimes(s *domain.ParkingSession) {
	s.EntryTime = s.EntryTime.In(time.UTC)
	if s.ExitTime.Valid {
		s.ExitTime.Time = s.ExitTime.Time.In(time.UTC)
	}
	s.CreatedAt = s.CreatedAt.In(time.UTC)
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
}

func (r *pgParkingSessionRepository) NextSlot(ctx context.Context) (int64, error) {
	var slot int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('parking_slot_seq')`).Scan(&slot); err != nil {
		return 0, fmt.Errorf("ParkingSessionRepository.NextSlot: %w", err)
	}
	return slot, nil
}

func (r *pgParkingSessionRepository) Create(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	query := `INSERT INTO parking_sessions
	           (plate_text, slot, entry_time, hourly_rate, is_paid, qr_code_path, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, FALSE, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		session.PlateText, session.Slot, session.EntryTime, session.HourlyRate, session.QRCodePath,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Create: %w", err)
	}
	session.IsPaid = false
	normalizeTimes(session)
	return session, nil
}

func (r *pgParkingSessionRepository) FindByID(ctx context.Context, id int64) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.FindByID: %w", err)
	}
	return session, nil
}

func (r *pgParkingSessionRepository) FindLatestByPlate(ctx context.Context, plate string) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + `
	           FROM parking_sessions
	           WHERE plate_text = $1
	           ORDER BY entry_time DESC, id DESC LIMIT 1`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, plate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.FindLatestByPlate: %w", err)
	}
	return session, nil
}

func (r *pgParkingSessionRepository) Find(ctx context.Context, filter domain.ParkingSessionFilterDTO) ([]domain.ParkingSession, error) {
	var conditions []string
	var args []any
	argID := 1

	if filter.Plate != nil {
		conditions = append(conditions, fmt.Sprintf("plate_text = $%d", argID))
		args = append(args, *filter.Plate)
		argID++
	}
	if filter.Paid != nil {
		conditions = append(conditions, fmt.Sprintf("is_paid = $%d", argID))
		args = append(args, *filter.Paid)
		argID++
	}
	if filter.Exited != nil {
		if *filter.Exited {
			conditions = append(conditions, "exit_time IS NOT NULL")
		} else {
			conditions = append(conditions, "exit_time IS NULL")
		}
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultFindLimit {
		limit = defaultFindLimit
	}

	query := `SELECT ` + sessionColumns + ` FROM parking_sessions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY entry_time DESC, id DESC LIMIT $%d", argID)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Find: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.ParkingSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.Find (scanning row): %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Find (rows error): %w", err)
	}
	return sessions, nil
}

func (r *pgParkingSessionRepository) SetExitTime(ctx context.Context, id int64, exitTime time.Time) (*domain.ParkingSession, error) {
	query := `UPDATE parking_sessions
	           SET exit_time = $2, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1 AND exit_time IS NULL
	           RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id, exitTime))
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ParkingSessionRepository.SetExitTime: %w", err)
	}

	// Either the row is gone or another request stamped it first.
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, repository.ErrAlreadyExited
}

func (r *pgParkingSessionRepository) MarkPaid(ctx context.Context, id int64) (*domain.ParkingSession, error) {
	query := `UPDATE parking_sessions
	           SET is_paid = TRUE, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1
	           RETURNING ` + sessionColumns

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.MarkPaid: %w", err)
	}
	return session, nil
}

func purgeConditions(filter repository.PurgeFilter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any
	if filter.RequireExited {
		conditions = append(conditions, "exit_time IS NOT NULL")
	}
	if !filter.EnteredBefore.IsZero() {
		args = append(args, filter.EnteredBefore)
		conditions = append(conditions, fmt.Sprintf("entry_time < $%d", len(args)))
	}
	if !filter.ExitedBefore.IsZero() {
		args = append(args, filter.ExitedBefore)
		conditions = append(conditions, fmt.Sprintf("exit_time < $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

func (r *pgParkingSessionRepository) DeleteMatching(ctx context.Context, filter repository.PurgeFilter, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	where, args := purgeConditions(filter)
	args = append(args, batchSize)
	query := fmt.Sprintf(`DELETE FROM parking_sessions
	           WHERE id IN (SELECT id FROM parking_sessions WHERE %s ORDER BY id LIMIT $%d)`, where, len(args))

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("ParkingSessionRepository.DeleteMatching: %w", err)
		}
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("ParkingSessionRepository.DeleteMatching: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("ParkingSessionRepository.DeleteMatching (rows affected): %w", err)
		}
		total += int(n)
		if n < int64(batchSize) {
			return total, nil
		}
	}
}
