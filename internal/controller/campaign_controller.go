package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/mailops/console-backend/internal/errors"
	"github.com/mailops/console-backend/internal/model"
	"github.com/mailops/console-backend/internal/service"
	"github.com/mailops/console-backend/internal/snapshot"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Snapshots       *snapshot.Store
}

// StartCampaign configures and starts a campaign in one step.
func (c *CampaignController) StartCampaign(w http.ResponseWriter, r *http.Request) {
	var cfg model.CampaignConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	state, err := c.CampaignService.Start(r.Context(), cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(state)
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	if err := c.CampaignService.Pause(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeStatus(w, c.CampaignService.Progress())
}

func (c *CampaignController) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	if err := c.CampaignService.Resume(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeStatus(w, c.CampaignService.Progress())
}

// GetProgress returns the reconciled progress view. If the requested
// campaign is not the one this replica monitors, the shared snapshot store
// is consulted before giving up.
func (c *CampaignController) GetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view := c.CampaignService.Progress()
	if view.CampaignID == id {
		writeStatus(w, view)
		return
	}

	rec, ok, err := c.Snapshots.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "snapshot store unavailable: "+err.Error(), http.StatusBadGateway)
		return
	}
	if !ok {
		writeError(w, appErrors.NewCampaignNotFound(id))
		return
	}
	writeStatus(w, service.ProgressView{
		CampaignID:      id,
		Status:          rec.Status,
		Sent:            rec.Progress.Sent,
		Total:           rec.Progress.Total,
		Percent:         rec.Progress.Percent,
		Failed:          rec.Progress.Failed,
		CurrentSequence: rec.CurrentSequence,
	})
}

func (c *CampaignController) ResetCampaign(w http.ResponseWriter, r *http.Request) {
	c.CampaignService.Reset()
	writeStatus(w, c.CampaignService.Progress())
}

func writeStatus(w http.ResponseWriter, view service.ProgressView) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		invalid  *appErrors.ErrInvalidConfiguration
		failed   *appErrors.ErrResolutionFailed
		rejected *appErrors.ErrCommandRejected
		notFound *appErrors.ErrCampaignNotFound
	)
	switch {
	case errors.As(err, &invalid):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &failed):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.As(err, &rejected):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
