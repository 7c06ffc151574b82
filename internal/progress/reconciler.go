package progress

import (
	"time"

	"github.com/mailops/console-backend/internal/model"
)

// Snapshot is the display-safe progress view derived from the two raw
// signals. Within one campaign lifetime Sent, Total and Percent never
// decrease across successive snapshots.
type Snapshot struct {
	Sent    int     `json:"sent"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Failed  int     `json:"failed"`
}

// RowView is a SendRecord as shown to the operator. Unconfirmed marks rows
// that were force-completed for display after the campaign went terminal
// while the dispatcher still reported them pending or sending.
type RowView struct {
	model.SendRecord
	Unconfirmed bool `json:"unconfirmed,omitempty"`
}

// Reconciler merges campaign-level counters and per-recipient rows into one
// monotonic progress view. The two inputs refresh independently and are not
// mutually consistent at any given instant; taking the running maximum of
// both keeps the user-visible numbers from ever going backward. One
// Reconciler instance serves one campaign lifetime; it is not safe for
// concurrent use.
type Reconciler struct {
	lastSent    int
	lastTotal   int
	lastPercent float64
}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Reconcile applies one observation from either channel.
func (r *Reconciler) Reconcile(state model.CampaignState, rows []model.SendRecord) Snapshot {
	sentFromRows, failedFromRows := 0, 0
	for _, row := range rows {
		switch row.Status {
		case model.SendSent:
			sentFromRows++
		case model.SendFailed:
			failedFromRows++
		}
	}

	totalFromRows := len(rows)
	if totalFromRows == 0 {
		totalFromRows = state.Total
	}

	sent := max(sentFromRows, state.SentCount, r.lastSent)
	total := max(totalFromRows, state.Total, r.lastTotal)

	percentFromRows := 0.0
	if totalFromRows > 0 {
		percentFromRows = float64(sentFromRows) / float64(totalFromRows) * 100
	}
	percentFromState := 0.0
	if state.Total > 0 {
		percentFromState = float64(state.SentCount) / float64(state.Total) * 100
	}
	percent := max(percentFromRows, percentFromState, r.lastPercent)
	if percent > 100 {
		percent = 100
	}

	r.lastSent = sent
	r.lastTotal = total
	r.lastPercent = percent

	return Snapshot{Sent: sent, Total: total, Percent: percent, Failed: failedFromRows}
}

// Reset clears retained maxima for a fresh campaign.
func (r *Reconciler) Reset() {
	r.lastSent = 0
	r.lastTotal = 0
	r.lastPercent = 0
}

// Compensate builds the display rows for a campaign that has reached a
// terminal status. Rows the dispatcher still reports as pending or sending
// are forced to sent with a synthetic completion time, flagged Unconfirmed.
// This is display-layer only; nothing is written back. The underlying
// inconsistency (a send may have silently failed) is the dispatcher's, so
// the flag is surfaced rather than silently reporting success.
func Compensate(rows []model.SendRecord, now time.Time) []RowView {
	views := make([]RowView, len(rows))
	for i, row := range rows {
		view := RowView{SendRecord: row}
		if !row.Status.Terminal() {
			view.Status = model.SendSent
			ts := now
			view.CompletedAt = &ts
			view.Unconfirmed = true
		}
		views[i] = view
	}
	return views
}

// Records flattens display rows back to send records so a final Reconcile
// can count compensated rows toward the frozen snapshot.
func Records(views []RowView) []model.SendRecord {
	rows := make([]model.SendRecord, len(views))
	for i, v := range views {
		rows[i] = v.SendRecord
	}
	return rows
}
