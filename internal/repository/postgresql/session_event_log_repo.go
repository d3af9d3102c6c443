package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"gopkg.in/guregu/null.v4"

	"github.com/amit9129/automated-parking-system/internal/domain"
	"github.com/amit9129/automated-parking-system/internal/repository"
)

type pgSessionEventLogRepository struct {
	db *sql.DB
}

func NewPgSessionEventLogRepository(db *sql.DB) repository.SessionEventLogRepository {
	return &pgSessionEventLogRepository{db: db}
}

func (r *pgSessionEventLogRepository) Append(ctx context.Context, event domain.SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("SessionEventLogRepository.Append: encode payload: %w", err)
	}

	query := `INSERT INTO session_events_log
                (event_id, event_type, session_id, plate_text, payload, occurred_at)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (event_id) DO NOTHING`

	// Purge events carry no session.
	_, err = r.db.ExecContext(ctx, query,
		event.EventID,
		string(event.Type),
		null.NewInt(event.SessionID, event.SessionID != 0),
		null.NewString(event.PlateText, event.PlateText != ""),
		payload,
		event.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("SessionEventLogRepository.Append: %w", err)
	}
	return nil
}
