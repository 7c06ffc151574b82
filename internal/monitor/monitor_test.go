package monitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appErrors "github.com/mailops/console-backend/internal/errors"
	"github.com/mailops/console-backend/internal/model"
	"github.com/mailops/console-backend/internal/monitor"
	"github.com/mailops/console-backend/internal/notify"
)

// Fake mirror store the tests mutate mid-run, standing in for the
// dispatcher-owned tables.
type fakeMirror struct {
	mu      sync.Mutex
	state   model.CampaignState
	rows    []model.SendRecord
	fetches int
}

func (f *fakeMirror) Get(ctx context.Context, id string) (*model.CampaignState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	s := f.state
	return &s, nil
}

func (f *fakeMirror) ListByCampaign(ctx context.Context, id string) ([]model.SendRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.SendRecord, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeMirror) set(state model.CampaignState, rows []model.SendRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.rows = rows
}

func (f *fakeMirror) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeMirror) status() model.CampaignStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Status
}

type fakeSubscriber struct {
	events chan notify.Event
	fail   bool
}

func (f *fakeSubscriber) Subscribe(exchange, campaignID string) (<-chan notify.Event, func(), error) {
	if f.fail {
		return nil, nil, appErrors.NewChannelUnavailable(exchange, errors.New("broker down"))
	}
	return f.events, func() {}, nil
}

func sentRows(n, total int) []model.SendRecord {
	rows := make([]model.SendRecord, total)
	for i := range rows {
		rows[i] = model.SendRecord{ID: i + 1, CampaignID: "c1", Status: model.SendPending}
		if i < n {
			rows[i].Status = model.SendSent
		}
	}
	return rows
}

func newTestMonitor(mirror *fakeMirror, sub notify.Subscriber, updates chan monitor.Update) *monitor.Monitor {
	return &monitor.Monitor{
		CampaignID:   "c1",
		States:       mirror,
		Records:      mirror,
		Subscriber:   sub,
		PollInterval: 10 * time.Millisecond,
		ConfirmReads: 2,
		ConfirmDelay: 5 * time.Millisecond,
		OnUpdate:     func(u monitor.Update) { updates <- u },
	}
}

func TestMonitorPollsToTerminalAndFreezes(t *testing.T) {
	mirror := &fakeMirror{}
	mirror.set(
		model.CampaignState{ID: "c1", Status: model.StatusSending, Total: 10, SentCount: 4},
		sentRows(4, 10),
	)

	updates := make(chan monitor.Update, 64)
	m := newTestMonitor(mirror, nil, updates)
	m.Start()
	defer m.Close()

	// First observation comes from the poll backstop.
	u := <-updates
	if u.Progress.Sent != 4 || u.Progress.Total != 10 {
		t.Fatalf("first update %+v, want sent=4 total=10", u.Progress)
	}

	// Dispatcher finishes, but two rows are stuck pending.
	mirror.set(
		model.CampaignState{ID: "c1", Status: model.StatusSent, Total: 10, SentCount: 8},
		sentRows(8, 10),
	)

	var final monitor.Update
	deadline := time.After(2 * time.Second)
	for !final.Final {
		select {
		case final = <-updates:
		case <-deadline:
			t.Fatal("no final update before deadline")
		}
	}

	if final.Progress.Sent != 10 || final.Progress.Percent != 100 {
		t.Errorf("final progress %+v, want 10/100%%", final.Progress)
	}
	unconfirmed := 0
	for _, v := range final.Rows {
		if v.Status != model.SendSent {
			t.Errorf("final row %d still %s", v.ID, v.Status)
		}
		if v.Unconfirmed {
			unconfirmed++
		}
	}
	if unconfirmed != 2 {
		t.Errorf("unconfirmed rows = %d, want 2", unconfirmed)
	}

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Error("monitor did not stop after terminal state")
	}
}

func TestMonitorPushHintTriggersRefetch(t *testing.T) {
	mirror := &fakeMirror{}
	mirror.set(
		model.CampaignState{ID: "c1", Status: model.StatusSending, Total: 5, SentCount: 1},
		sentRows(1, 5),
	)
	sub := &fakeSubscriber{events: make(chan notify.Event)}

	updates := make(chan monitor.Update, 64)
	m := newTestMonitor(mirror, sub, updates)
	m.PollInterval = time.Hour // push only; poll must not be needed
	m.Start()
	defer m.Close()

	sub.events <- notify.Event{CampaignID: "c1"}

	select {
	case u := <-updates:
		if u.Progress.Sent != 1 {
			t.Errorf("got %+v, want sent=1", u.Progress)
		}
	case <-time.After(time.Second):
		t.Fatal("push hint did not trigger an update")
	}
}

func TestMonitorDegradesToPollOnlyWhenChannelUnavailable(t *testing.T) {
	mirror := &fakeMirror{}
	mirror.set(
		model.CampaignState{ID: "c1", Status: model.StatusSent, Total: 2, SentCount: 2},
		sentRows(2, 2),
	)
	sub := &fakeSubscriber{fail: true}

	updates := make(chan monitor.Update, 64)
	m := newTestMonitor(mirror, sub, updates)
	m.Start()
	defer m.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.Final {
				if u.Progress.Sent != 2 {
					t.Errorf("final %+v, want sent=2", u.Progress)
				}
				return
			}
		case <-deadline:
			t.Fatal("poll-only monitor never reached terminal view")
		}
	}
}

func TestCloseStopsPolling(t *testing.T) {
	mirror := &fakeMirror{}
	mirror.set(
		model.CampaignState{ID: "c1", Status: model.StatusSending, Total: 5, SentCount: 0},
		sentRows(0, 5),
	)

	updates := make(chan monitor.Update, 64)
	m := newTestMonitor(mirror, nil, updates)
	m.Start()

	<-updates // at least one poll happened
	m.Close()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on Close")
	}

	// No further queries once closed; the dispatcher-side state is untouched.
	before := mirror.fetchCount()
	time.Sleep(50 * time.Millisecond)
	if after := mirror.fetchCount(); after != before {
		t.Errorf("fetches continued after Close: %d -> %d", before, after)
	}
	if got := mirror.status(); got != model.StatusSending {
		t.Errorf("Close must not alter dispatcher state, got %s", got)
	}
}
