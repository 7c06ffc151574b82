package repository

import (
	"context"
	"database/sql"
	"time"

	appErrors "github.com/mailops/console-backend/internal/errors"
	"github.com/mailops/console-backend/internal/model"
)

// CampaignStateRepositoryInterface covers the dispatcher-owned mirror reads.
// The orchestrator never writes campaign state; the write methods below
// exist for the dispatcher side (see cmd/dispatchsim).
type CampaignStateRepositoryInterface interface {
	Get(ctx context.Context, id string) (*model.CampaignState, error)
}

type CampaignStateRepository struct {
	DB *sql.DB
}

func (r *CampaignStateRepository) Get(ctx context.Context, id string) (*model.CampaignState, error) {
	query := `
        SELECT id, title, status, total, sent_count, current_sequence, error_message
        FROM campaign_states WHERE id=$1
    `
	var s model.CampaignState
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Title, &s.Status, &s.Total, &s.SentCount, &s.CurrentSequence, &s.ErrorMessage,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &s, nil
}

// ====================== Dispatcher-side writes ======================

func (r *CampaignStateRepository) Create(ctx context.Context, s *model.CampaignState) error {
	query := `
        INSERT INTO campaign_states (id, title, status, total, sent_count, current_sequence, error_message, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.DB.ExecContext(ctx, query,
		s.ID, s.Title, s.Status, s.Total, s.SentCount, s.CurrentSequence, s.ErrorMessage, time.Now(),
	)
	return err
}

func (r *CampaignStateRepository) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus, errMsg *string) error {
	query := `UPDATE campaign_states SET status=$1, error_message=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.ExecContext(ctx, query, status, errMsg, id)
	return err
}

func (r *CampaignStateRepository) UpdateProgress(ctx context.Context, id string, sentCount, currentSequence int) error {
	query := `UPDATE campaign_states SET sent_count=$1, current_sequence=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.ExecContext(ctx, query, sentCount, currentSequence, id)
	return err
}

var _ CampaignStateRepositoryInterface = (*CampaignStateRepository)(nil)
