package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mailops/console-backend/internal/dispatcher"
	appErrors "github.com/mailops/console-backend/internal/errors"
	"github.com/mailops/console-backend/internal/model"
	"github.com/mailops/console-backend/internal/monitor"
	"github.com/mailops/console-backend/internal/notify"
	"github.com/mailops/console-backend/internal/progress"
	"github.com/mailops/console-backend/internal/rotation"
	"github.com/mailops/console-backend/internal/snapshot"
)

// CampaignService is the operator-facing control surface: the
// idle → sending ⇄ paused → {sent, failed} state machine plus the reconciled
// progress view for the currently watched campaign. One instance manages one
// campaign at a time; Reset clears it for the next one.
type CampaignService struct {
	Resolver   RosterResolver
	Dispatcher dispatcher.CommandAPI
	States     monitor.StateSource
	Records    monitor.RecordSource
	Subscriber notify.Subscriber
	Snapshots  *snapshot.Store

	// NewDispatcher, when set, builds a command client for a campaign whose
	// config names its own dispatch endpoint. Campaigns without one use
	// Dispatcher.
	NewDispatcher func(baseURL string) dispatcher.CommandAPI

	PollInterval time.Duration
	ConfirmReads int
	ConfirmDelay time.Duration

	mu       sync.Mutex
	gen      int
	starting bool
	status   model.CampaignStatus
	config   *model.CampaignConfig
	roster   []model.Recipient
	state    *model.CampaignState
	current  progress.Snapshot
	rows     []progress.RowView
	mon      *monitor.Monitor
	cmdAPI   dispatcher.CommandAPI
}

// RosterResolver is satisfied by roster.Resolver.
type RosterResolver interface {
	Resolve(ctx context.Context, listIDs []int) ([]model.Recipient, error)
}

// ProgressView is the reconciled tuple surfaced to the rest of the
// application.
type ProgressView struct {
	CampaignID      string               `json:"campaign_id,omitempty"`
	Status          model.CampaignStatus `json:"status"`
	Sent            int                  `json:"sent"`
	Total           int                  `json:"total"`
	Percent         float64              `json:"percent"`
	Failed          int                  `json:"failed"`
	CurrentSequence int                  `json:"current_sequence"`
	ErrorMessage    *string              `json:"error_message,omitempty"`
	Recipients      []progress.RowView   `json:"recipients,omitempty"`
}

// ValidateConfig rejects bad pacing/sequence bounds before any external
// call is made.
func ValidateConfig(cfg model.CampaignConfig) error {
	if len(cfg.ListIDs) == 0 {
		return appErrors.NewInvalidConfiguration("list_ids", "must name at least one list")
	}
	if cfg.DelaySeconds < 1 {
		return appErrors.NewInvalidConfiguration("delay_seconds", "must be at least 1")
	}
	if cfg.EmailsPerSequence < 1 {
		return appErrors.NewInvalidConfiguration("emails_per_sequence", "must be at least 1")
	}
	if cfg.MaxSequences < 1 {
		return appErrors.NewInvalidConfiguration("max_sequences", "must be at least 1")
	}
	if cfg.StartSequence < 1 || cfg.StartSequence > cfg.MaxSequences {
		return appErrors.NewInvalidConfiguration("start_sequence", "must be within 1..max_sequences")
	}
	return nil
}

// Start validates the configuration, resolves the roster and issues the
// create-and-start command. idle → sending on acceptance; on any rejection
// the state machine stays idle and the error is surfaced. No automatic
// retry.
func (s *CampaignService) Start(ctx context.Context, cfg model.CampaignConfig) (*model.CampaignState, error) {
	s.mu.Lock()
	if s.status == "" {
		s.status = model.StatusIdle
	}
	if s.starting {
		s.mu.Unlock()
		return nil, appErrors.NewCommandRejected("start", "another start is in progress")
	}
	if s.status != model.StatusIdle {
		status := s.status
		s.mu.Unlock()
		return nil, appErrors.NewCommandRejected("start", "campaign already "+status.String())
	}
	// Hold the guard across the resolve and dispatch window so a concurrent
	// Start cannot slip through while the lock is released.
	s.starting = true
	gen := s.gen
	s.mu.Unlock()

	reject := func(err error) (*model.CampaignState, error) {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return reject(err)
	}

	recipients, err := s.Resolver.Resolve(ctx, cfg.ListIDs)
	if err != nil {
		return reject(err)
	}
	if len(recipients) == 0 {
		return reject(appErrors.NewInvalidConfiguration("list_ids", "resolve to an empty roster"))
	}

	cmdAPI := s.Dispatcher
	if s.NewDispatcher != nil && cfg.DispatchURL != "" {
		cmdAPI = s.NewDispatcher(cfg.DispatchURL)
	}

	state, err := cmdAPI.CreateAndStart(ctx, cfg, recipients)
	if err != nil {
		return reject(err)
	}

	s.mu.Lock()
	s.starting = false
	if gen != s.gen {
		// Reset raced the start; the dispatcher accepted the campaign but
		// this view no longer wants it. Do not install a monitor.
		s.mu.Unlock()
		return nil, appErrors.NewCommandRejected("start", "view was reset while starting")
	}
	s.cmdAPI = cmdAPI
	s.status = model.StatusSending
	s.config = &cfg
	s.roster = recipients
	s.state = state
	s.mon = &monitor.Monitor{
		CampaignID:   state.ID,
		States:       s.States,
		Records:      s.Records,
		Subscriber:   s.Subscriber,
		Snapshots:    s.Snapshots,
		PollInterval: s.PollInterval,
		ConfirmReads: s.ConfirmReads,
		ConfirmDelay: s.ConfirmDelay,
		OnUpdate:     func(u monitor.Update) { s.applyUpdate(gen, u) },
	}
	s.mon.Start()
	s.mu.Unlock()

	log.Printf("🚀 campaign %s started: %d recipients", state.ID, len(recipients))
	return state, nil
}

// Pause is valid only while sending. Local state optimistically becomes
// paused on command success; the monitor keeps confirming the authoritative
// dispatcher state.
func (s *CampaignService) Pause(ctx context.Context) error {
	s.mu.Lock()
	if s.status != model.StatusSending {
		status := s.status
		s.mu.Unlock()
		return appErrors.NewCommandRejected("pause", "not sending (status "+statusOrIdle(status)+")")
	}
	id, cmdAPI := s.state.ID, s.cmdAPI
	s.mu.Unlock()

	if err := cmdAPI.Pause(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.status == model.StatusSending {
		s.status = model.StatusPaused
	}
	s.mu.Unlock()
	return nil
}

// Resume is valid only while paused.
func (s *CampaignService) Resume(ctx context.Context) error {
	s.mu.Lock()
	if s.status != model.StatusPaused {
		status := s.status
		s.mu.Unlock()
		return appErrors.NewCommandRejected("resume", "not paused (status "+statusOrIdle(status)+")")
	}
	id, cmdAPI := s.state.ID, s.cmdAPI
	s.mu.Unlock()

	if err := cmdAPI.Resume(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.status == model.StatusPaused {
		s.status = model.StatusSending
	}
	s.mu.Unlock()
	return nil
}

// Reset clears all local state for a fresh campaign configuration. Purely
// local: the dispatcher keeps whatever it was doing.
func (s *CampaignService) Reset() {
	s.mu.Lock()
	mon := s.mon
	s.gen++
	s.status = model.StatusIdle
	s.config = nil
	s.roster = nil
	s.state = nil
	s.current = progress.Snapshot{}
	s.rows = nil
	s.mon = nil
	s.cmdAPI = nil
	s.mu.Unlock()

	if mon != nil {
		mon.Close()
	}
}

// Progress returns the current reconciled view. After a terminal status the
// final counts are retained until Reset.
func (s *CampaignService) Progress() ProgressView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := ProgressView{
		Status:  s.status,
		Sent:    s.current.Sent,
		Total:   s.current.Total,
		Percent: s.current.Percent,
		Failed:  s.current.Failed,
	}
	if view.Status == "" {
		view.Status = model.StatusIdle
	}
	if s.state != nil {
		view.CampaignID = s.state.ID
		view.ErrorMessage = s.state.ErrorMessage
	}
	view.Recipients = s.rows
	view.CurrentSequence = s.currentSequenceLocked()
	return view
}

// currentSequenceLocked derives the active sender from the reconciled sent
// count; a stored counter would drift from the dispatcher across
// pause/resume, the derivation cannot.
func (s *CampaignService) currentSequenceLocked() int {
	if s.config == nil {
		if s.state != nil {
			return s.state.CurrentSequence
		}
		return 0
	}
	seq, err := rotation.SenderFor(s.current.Sent, s.config.EmailsPerSequence, s.config.MaxSequences)
	if err != nil {
		return s.state.CurrentSequence
	}
	return seq
}

// Roster returns the immutable recipient roster of the running campaign.
func (s *CampaignService) Roster() []model.Recipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster
}

// applyUpdate receives every reconciled observation from the monitor.
// Dispatcher-reported status is authoritative: a terminal status overrides
// any locally-optimistic pause/resume state unconditionally. Updates from a
// monitor belonging to a reset campaign are dropped.
func (s *CampaignService) applyUpdate(gen int, u monitor.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}

	s.state = &u.State
	s.current = u.Progress
	s.rows = u.Rows

	if u.State.Status.Terminal() {
		s.status = u.State.Status
		return
	}
	if u.State.Status.IsValid() && !s.status.Terminal() {
		s.status = u.State.Status
	}
}

func statusOrIdle(status model.CampaignStatus) string {
	if status == "" {
		return model.StatusIdle.String()
	}
	return status.String()
}
