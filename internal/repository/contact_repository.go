package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/mailops/console-backend/internal/model"
)

// ContactRepositoryInterface defines the contact store reads the orchestrator needs
type ContactRepositoryInterface interface {
	ListMembers(ctx context.Context, listIDs []int) ([]model.Contact, error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *sql.DB
}

// ListMembers fetches every contact belonging to any of the given lists,
// with subscription status as of query time. Membership in several lists
// yields duplicate rows; deduplication is the resolver's job.
func (r *ContactRepository) ListMembers(ctx context.Context, listIDs []int) ([]model.Contact, error) {
	query := `
        SELECT c.id, c.email, c.first_name, c.last_name, c.status
        FROM contacts c
        JOIN list_memberships m ON m.contact_id = c.id
        WHERE m.list_id = ANY($1)
        ORDER BY m.list_id, c.id
    `
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(listIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Status); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
