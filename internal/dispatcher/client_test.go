package dispatcher_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mailops/console-backend/internal/dispatcher"
	appErrors "github.com/mailops/console-backend/internal/errors"
	"github.com/mailops/console-backend/internal/model"
)

func TestCreateAndStartDecodesAcceptedState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/campaigns" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Config model.CampaignConfig `json:"config"`
			Roster []model.Recipient    `json:"roster"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.CampaignState{
			ID:     "c42",
			Status: model.StatusSending,
			Total:  len(body.Roster),
		})
	}))
	defer srv.Close()

	c := dispatcher.NewClient(srv.URL)
	state, err := c.CreateAndStart(context.Background(), model.CampaignConfig{Title: "t"}, []model.Recipient{{Email: "a@x.io"}})
	if err != nil {
		t.Fatal(err)
	}
	if state.ID != "c42" || state.Total != 1 {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestCommandsHitVerbEndpoints(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := dispatcher.NewClient(srv.URL)
	if err := c.Pause(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if err := c.Resume(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != "/campaigns/c1/pause" || paths[1] != "/campaigns/c1/resume" {
		t.Errorf("unexpected paths %v", paths)
	}
}

func TestRejectionBecomesCommandRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "already paused", http.StatusConflict)
	}))
	defer srv.Close()

	c := dispatcher.NewClient(srv.URL)
	err := c.Pause(context.Background(), "c1")

	var rejected *appErrors.ErrCommandRejected
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ErrCommandRejected, got %v", err)
	}
	if rejected.Reason != "already paused" {
		t.Errorf("reason = %q, want dispatcher body", rejected.Reason)
	}
}

func TestGetMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := dispatcher.NewClient(srv.URL)
	_, err := c.Get(context.Background(), "nope")

	var notFound *appErrors.ErrCampaignNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}
