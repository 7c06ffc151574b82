// cmd/dispatchsim/main.go
//
// Development stand-in for the external dispatcher. It owns the
// campaign_states and send_records tables, executes the pacing and sender
// rotation loop against a mock transport, and broadcasts change hints over
// AMQP so the console's monitors have a push channel to watch.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/mailops/console-backend/internal/config"
	"github.com/mailops/console-backend/internal/db"
	"github.com/mailops/console-backend/internal/model"
	"github.com/mailops/console-backend/internal/notify"
	"github.com/mailops/console-backend/internal/repository"
	"github.com/mailops/console-backend/internal/rotation"
)

type simulator struct {
	states  *repository.CampaignStateRepository
	records *repository.SendRecordRepository
	broker  notify.Publisher
}

type startRequest struct {
	Config model.CampaignConfig `json:"config"`
	Roster []model.Recipient    `json:"roster"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}

	sim := &simulator{
		states:  &repository.CampaignStateRepository{DB: conn},
		records: &repository.SendRecordRepository{DB: conn},
	}

	if cfg.AMQPURL != "" {
		amqpConn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Println("⚠️ AMQP unavailable, running without change hints:", err)
		} else {
			defer amqpConn.Close()
			sim.broker = notify.NewBroker(amqpConn)
		}
	}

	r := chi.NewRouter()
	r.Post("/campaigns", sim.createAndStart)
	r.Post("/campaigns/{id}/pause", sim.setStatus(model.StatusPaused))
	r.Post("/campaigns/{id}/resume", sim.setStatus(model.StatusSending))
	r.Get("/campaigns/{id}", sim.get)

	port := cfg.HTTPPort + 1
	log.Printf("🚀 Dispatcher simulator running on :%d", port)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), r))
}

func (s *simulator) createAndStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if len(req.Roster) == 0 {
		http.Error(w, "empty roster", http.StatusUnprocessableEntity)
		return
	}
	if _, err := rotation.SenderFor(0, req.Config.EmailsPerSequence, req.Config.MaxSequences); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	state := model.CampaignState{
		ID:              uuid.New().String(),
		Title:           req.Config.Title,
		Status:          model.StatusSending,
		Total:           len(req.Roster),
		CurrentSequence: req.Config.StartSequence,
	}
	if err := s.states.Create(ctx, &state); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.records.CreateBatch(ctx, state.ID, req.Roster); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	go s.sendLoop(state.ID, req.Config)

	log.Printf("📩 campaign %s accepted: %d recipients", state.ID, state.Total)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(state)
}

func (s *simulator) setStatus(status model.CampaignStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		state, err := s.states.Get(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if state.Status.Terminal() {
			http.Error(w, "campaign is "+state.Status.String(), http.StatusConflict)
			return
		}
		if err := s.states.UpdateStatus(r.Context(), id, status, nil); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.hint(notify.CampaignChanges, id)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *simulator) get(w http.ResponseWriter, r *http.Request) {
	state, err := s.states.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

// sendLoop walks the pending rows with the configured inter-email delay,
// rotating senders as the sent count grows. Pausing is honored between
// emails by re-reading campaign status.
func (s *simulator) sendLoop(campaignID string, cfg model.CampaignConfig) {
	ctx := context.Background()
	delay := time.Duration(cfg.DelaySeconds) * time.Second
	sent := 0

	rows, err := s.records.ListByCampaign(ctx, campaignID)
	if err != nil {
		s.fail(ctx, campaignID, err)
		return
	}

	for _, row := range rows {
		if row.Status.Terminal() {
			continue
		}

		for {
			state, err := s.states.Get(ctx, campaignID)
			if err != nil {
				s.fail(ctx, campaignID, err)
				return
			}
			if state.Status != model.StatusPaused {
				break
			}
			time.Sleep(delay)
		}

		_ = s.records.UpdateStatus(ctx, row.ID, model.SendSending, "")
		s.hint(notify.RecordChanges, campaignID)
		time.Sleep(delay)

		if mockSend(row.Email) {
			_ = s.records.UpdateStatus(ctx, row.ID, model.SendSent, "")
			sent++
		} else {
			_ = s.records.UpdateStatus(ctx, row.ID, model.SendFailed, "mock send failed")
		}
		s.hint(notify.RecordChanges, campaignID)

		seq, _ := rotation.SenderFor(sent, cfg.EmailsPerSequence, cfg.MaxSequences)
		_ = s.states.UpdateProgress(ctx, campaignID, sent, seq)
		s.hint(notify.CampaignChanges, campaignID)
	}

	if err := s.states.UpdateStatus(ctx, campaignID, model.StatusSent, nil); err != nil {
		log.Println("⚠️ failed to mark campaign sent:", err)
		return
	}
	s.hint(notify.CampaignChanges, campaignID)
	log.Printf("✅ campaign %s finished: %d/%d sent", campaignID, sent, len(rows))
}

func (s *simulator) fail(ctx context.Context, campaignID string, cause error) {
	msg := cause.Error()
	_ = s.states.UpdateStatus(ctx, campaignID, model.StatusFailed, &msg)
	s.hint(notify.CampaignChanges, campaignID)
	log.Printf("⚠️ campaign %s failed: %v", campaignID, cause)
}

func (s *simulator) hint(exchange, campaignID string) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(exchange, notify.Event{CampaignID: campaignID}); err != nil {
		log.Println("⚠️ failed to publish change hint:", err)
	}
}

// mockSend simulates delivery with 90% success
func mockSend(email string) bool {
	return rand.Intn(100) < 90
}
