package monitor

import (
	"context"
	"log"
	"time"

	"github.com/mailops/console-backend/internal/model"
	"github.com/mailops/console-backend/internal/notify"
	"github.com/mailops/console-backend/internal/progress"
	"github.com/mailops/console-backend/internal/snapshot"
)

// StateSource and RecordSource are the mirror reads the monitor performs on
// every signal; satisfied by the repository package.
type StateSource interface {
	Get(ctx context.Context, id string) (*model.CampaignState, error)
}

type RecordSource interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]model.SendRecord, error)
}

// Update is one reconciled observation pushed to the owner of the monitor.
// Final marks the frozen view after terminal confirmation reads.
type Update struct {
	State    model.CampaignState
	Progress progress.Snapshot
	Rows     []progress.RowView
	Final    bool
}

// Monitor watches one campaign over two channels: push hints from the change
// broker and a fixed-interval poll that covers dropped hints. Every signal
// triggers a re-fetch of state and rows and one pass through the reconciler,
// so ordering across channels does not matter. All reconciler state is owned
// by the single run goroutine.
type Monitor struct {
	CampaignID string

	States     StateSource
	Records    RecordSource
	Subscriber notify.Subscriber
	Snapshots  *snapshot.Store

	PollInterval time.Duration
	ConfirmReads int
	ConfirmDelay time.Duration

	// OnUpdate receives every reconciled observation, in order. Called from
	// the run goroutine.
	OnUpdate func(Update)

	reconciler *progress.Reconciler
	ctx        context.Context
	cancel     context.CancelFunc
	doneCh     chan struct{}
}

const (
	DefaultPollInterval = 2 * time.Second
	DefaultConfirmReads = 2
	DefaultConfirmDelay = 1 * time.Second
)

// Start launches the monitor goroutine. The monitor runs until the campaign
// reaches a terminal state or Close is called.
func (m *Monitor) Start() {
	if m.PollInterval <= 0 {
		m.PollInterval = DefaultPollInterval
	}
	if m.ConfirmReads <= 0 {
		m.ConfirmReads = DefaultConfirmReads
	}
	if m.ConfirmDelay <= 0 {
		m.ConfirmDelay = DefaultConfirmDelay
	}
	m.reconciler = progress.NewReconciler()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.doneCh = make(chan struct{})
	go m.run()
}

// Close stops the poll loop and unsubscribes both push channels. Purely
// observational: the external dispatcher keeps sending in the background.
// Safe to call more than once.
func (m *Monitor) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Done is closed when the run goroutine has exited.
func (m *Monitor) Done() <-chan struct{} { return m.doneCh }

func (m *Monitor) run() {
	defer close(m.doneCh)

	campaignHints := m.subscribe(notify.CampaignChanges)
	recordHints := m.subscribe(notify.RecordChanges)

	ticker := time.NewTicker(m.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		case _, ok := <-campaignHints:
			if !ok {
				campaignHints = nil
				continue
			}
		case _, ok := <-recordHints:
			if !ok {
				recordHints = nil
				continue
			}
		}

		state, rows, err := m.fetch()
		if err != nil {
			// Transient monitoring failures are swallowed; the next
			// signal retries.
			log.Printf("⚠️ monitor %s: fetch failed: %v", m.CampaignID, err)
			continue
		}

		snap := m.reconciler.Reconcile(*state, rows)
		m.emit(Update{State: *state, Progress: snap, Rows: asViews(rows)})

		if state.Status.Terminal() {
			m.finalize(*state, rows)
			return
		}
	}
}

// subscribe opens one push channel; on failure the monitor degrades to
// poll-only for that channel (a nil chan never fires in the select).
func (m *Monitor) subscribe(exchange string) <-chan notify.Event {
	if m.Subscriber == nil {
		return nil
	}
	events, cancel, err := m.Subscriber.Subscribe(exchange, m.CampaignID)
	if err != nil {
		log.Printf("⚠️ monitor %s: %v, degrading to poll-only", m.CampaignID, err)
		return nil
	}
	go func() {
		<-m.ctx.Done()
		cancel()
	}()
	return events
}

func (m *Monitor) fetch() (*model.CampaignState, []model.SendRecord, error) {
	state, err := m.States.Get(m.ctx, m.CampaignID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := m.Records.ListByCampaign(m.ctx, m.CampaignID)
	if err != nil {
		return nil, nil, err
	}
	return state, rows, nil
}

// finalize performs the bounded confirmation reads after a terminal status,
// catching row updates that arrive late, then compensates rows still stuck
// in a non-terminal status and freezes the view.
func (m *Monitor) finalize(state model.CampaignState, rows []model.SendRecord) {
	for i := 0; i < m.ConfirmReads; i++ {
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(m.ConfirmDelay):
		}
		fresh, err := m.Records.ListByCampaign(m.ctx, m.CampaignID)
		if err != nil {
			log.Printf("⚠️ monitor %s: confirmation read %d failed: %v", m.CampaignID, i+1, err)
			continue
		}
		rows = fresh
		m.reconciler.Reconcile(state, rows)
	}

	views := progress.Compensate(rows, time.Now())
	forced := 0
	for _, v := range views {
		if v.Unconfirmed {
			forced++
		}
	}
	if forced > 0 {
		// Known dispatcher inconsistency: terminal campaign with
		// non-terminal rows. Compensated for display, not written back.
		log.Printf("⚠️ monitor %s: %d rows unconfirmed at terminal status %s", m.CampaignID, forced, state.Status)
	}

	snap := m.reconciler.Reconcile(state, progress.Records(views))
	m.emit(Update{State: state, Progress: snap, Rows: views, Final: true})
}

func (m *Monitor) emit(u Update) {
	if m.OnUpdate != nil {
		m.OnUpdate(u)
	}
	if m.Snapshots != nil {
		rec := snapshot.Record{
			Status:          u.State.Status,
			Progress:        u.Progress,
			CurrentSequence: u.State.CurrentSequence,
		}
		if err := m.Snapshots.Put(context.Background(), m.CampaignID, rec); err != nil {
			log.Printf("⚠️ monitor %s: snapshot write failed: %v", m.CampaignID, err)
		}
	}
}

func asViews(rows []model.SendRecord) []progress.RowView {
	views := make([]progress.RowView, len(rows))
	for i, r := range rows {
		views[i] = progress.RowView{SendRecord: r}
	}
	return views
}
