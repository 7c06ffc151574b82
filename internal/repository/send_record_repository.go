package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mailops/console-backend/internal/model"
)

// SendRecordRepositoryInterface covers the per-recipient row reads the
// monitor performs on every signal.
type SendRecordRepositoryInterface interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]model.SendRecord, error)
}

type SendRecordRepository struct {
	DB *sql.DB
}

func (r *SendRecordRepository) ListByCampaign(ctx context.Context, campaignID string) ([]model.SendRecord, error) {
	query := `
        SELECT id, campaign_id, email, name, status, completed_at, last_error
        FROM send_records
        WHERE campaign_id=$1
        ORDER BY id
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.SendRecord{}
	for rows.Next() {
		var rec model.SendRecord
		var lastError sql.NullString
		if err := rows.Scan(&rec.ID, &rec.CampaignID, &rec.Email, &rec.Name, &rec.Status, &rec.CompletedAt, &lastError); err != nil {
			return nil, err
		}
		rec.LastError = lastError.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ====================== Dispatcher-side writes ======================

// CreateBatch materializes the roster as pending rows, one per recipient.
func (r *SendRecordRepository) CreateBatch(ctx context.Context, campaignID string, recipients []model.Recipient) error {
	query := `
        INSERT INTO send_records (campaign_id, email, name, status, created_at)
        VALUES ($1, $2, $3, 'pending', NOW())
    `
	for _, rec := range recipients {
		if _, err := r.DB.ExecContext(ctx, query, campaignID, rec.Email, rec.Name); err != nil {
			return err
		}
	}
	return nil
}

func (r *SendRecordRepository) UpdateStatus(ctx context.Context, id int, status model.SendStatus, lastError string) error {
	var completedAt *time.Time
	if status.Terminal() {
		now := time.Now()
		completedAt = &now
	}
	query := `UPDATE send_records SET status=$1, last_error=$2, completed_at=$3 WHERE id=$4`
	_, err := r.DB.ExecContext(ctx, query, status, lastError, completedAt, id)
	return err
}

var _ SendRecordRepositoryInterface = (*SendRecordRepository)(nil)
