package progress_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/mailops/console-backend/internal/model"
	"github.com/mailops/console-backend/internal/progress"
)

func rows(sent, pending, failed int) []model.SendRecord {
	out := []model.SendRecord{}
	for i := 0; i < sent; i++ {
		out = append(out, model.SendRecord{Status: model.SendSent})
	}
	for i := 0; i < pending; i++ {
		out = append(out, model.SendRecord{Status: model.SendPending})
	}
	for i := 0; i < failed; i++ {
		out = append(out, model.SendRecord{Status: model.SendFailed})
	}
	return out
}

func TestReconcileTakesMaxOfBothSignals(t *testing.T) {
	r := progress.NewReconciler()

	state := model.CampaignState{SentCount: 40, Total: 100}
	snap := r.Reconcile(state, rows(45, 55, 0))

	if snap.Sent != 45 {
		t.Errorf("Sent = %d, want 45 (rows ahead of state)", snap.Sent)
	}
	if snap.Total != 100 {
		t.Errorf("Total = %d, want 100", snap.Total)
	}
	if snap.Percent != 45 {
		t.Errorf("Percent = %v, want 45", snap.Percent)
	}
}

func TestReconcileFallsBackToStateTotalWhenNoRows(t *testing.T) {
	r := progress.NewReconciler()

	snap := r.Reconcile(model.CampaignState{SentCount: 3, Total: 50}, nil)
	if snap.Total != 50 || snap.Sent != 3 {
		t.Errorf("got %+v, want sent=3 total=50", snap)
	}
	if snap.Percent != 6 {
		t.Errorf("Percent = %v, want 6", snap.Percent)
	}
}

func TestReconcileNeverRegresses(t *testing.T) {
	r := progress.NewReconciler()

	r.Reconcile(model.CampaignState{SentCount: 60, Total: 100}, rows(55, 45, 0))

	// A stale poll result arrives after the push channel got ahead.
	snap := r.Reconcile(model.CampaignState{SentCount: 20, Total: 100}, rows(10, 90, 0))

	if snap.Sent != 60 {
		t.Errorf("Sent regressed to %d, want retained 60", snap.Sent)
	}
	if snap.Percent != 60 {
		t.Errorf("Percent regressed to %v, want retained 60", snap.Percent)
	}
}

func TestReconcileMonotonicUnderRandomInterleaving(t *testing.T) {
	r := progress.NewReconciler()
	rng := rand.New(rand.NewSource(1))

	lastSent, lastPercent := 0, 0.0
	for i := 0; i < 500; i++ {
		sent := rng.Intn(101)
		snap := r.Reconcile(
			model.CampaignState{SentCount: rng.Intn(101), Total: 100},
			rows(sent, 100-sent, 0),
		)
		if snap.Sent < lastSent {
			t.Fatalf("step %d: Sent went %d -> %d", i, lastSent, snap.Sent)
		}
		if snap.Percent < lastPercent {
			t.Fatalf("step %d: Percent went %v -> %v", i, lastPercent, snap.Percent)
		}
		if snap.Percent > 100 {
			t.Fatalf("step %d: Percent above 100: %v", i, snap.Percent)
		}
		lastSent, lastPercent = snap.Sent, snap.Percent
	}
}

func TestCompensateForcesStuckRowsForDisplay(t *testing.T) {
	records := rows(8, 2, 0)
	now := time.Now()

	views := progress.Compensate(records, now)
	forced := 0
	for _, v := range views {
		if v.Status != model.SendSent {
			t.Errorf("row still %s after compensation", v.Status)
		}
		if v.Unconfirmed {
			forced++
			if v.CompletedAt == nil || !v.CompletedAt.Equal(now) {
				t.Error("forced row should carry the synthetic completion time")
			}
		}
	}
	if forced != 2 {
		t.Errorf("forced %d rows, want 2", forced)
	}

	// Feeding the compensated rows back gives the frozen terminal snapshot.
	r := progress.NewReconciler()
	snap := r.Reconcile(model.CampaignState{Status: model.StatusSent, SentCount: 8, Total: 10}, progress.Records(views))
	if snap.Sent != 10 || snap.Percent != 100 {
		t.Errorf("after compensation got sent=%d percent=%v, want 10/100", snap.Sent, snap.Percent)
	}
}

func TestCompensateLeavesFailedRowsAlone(t *testing.T) {
	views := progress.Compensate(rows(3, 0, 2), time.Now())
	failed := 0
	for _, v := range views {
		if v.Status == model.SendFailed {
			failed++
			if v.Unconfirmed {
				t.Error("failed row must not be marked unconfirmed")
			}
		}
	}
	if failed != 2 {
		t.Errorf("failed rows = %d, want 2", failed)
	}
}

func TestResetClearsRetainedMaxima(t *testing.T) {
	r := progress.NewReconciler()
	r.Reconcile(model.CampaignState{SentCount: 90, Total: 100}, nil)
	r.Reset()

	snap := r.Reconcile(model.CampaignState{SentCount: 1, Total: 10}, nil)
	if snap.Sent != 1 || snap.Percent != 10 {
		t.Errorf("after reset got %+v, want fresh sent=1 percent=10", snap)
	}
}
