// cmd/server/main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/mailops/console-backend/internal/config"
	"github.com/mailops/console-backend/internal/controller"
	"github.com/mailops/console-backend/internal/db"
	"github.com/mailops/console-backend/internal/dispatcher"
	"github.com/mailops/console-backend/internal/notify"
	"github.com/mailops/console-backend/internal/repository"
	"github.com/mailops/console-backend/internal/roster"
	"github.com/mailops/console-backend/internal/service"
	"github.com/mailops/console-backend/internal/snapshot"
)

func main() {
	// Load .env
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

	contactRepo := &repository.ContactRepository{DB: conn}
	stateRepo := &repository.CampaignStateRepository{DB: conn}
	recordRepo := &repository.SendRecordRepository{DB: conn}

	// Push channel is optional: without a broker the monitor runs poll-only.
	var subscriber notify.Subscriber
	if cfg.AMQPURL != "" {
		amqpConn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			log.Println("⚠️ AMQP unavailable, monitors will run poll-only:", err)
		} else {
			defer amqpConn.Close()
			subscriber = notify.NewBroker(amqpConn)
		}
	}

	var snapshots *snapshot.Store
	if cfg.RedisURL != "" {
		client, err := snapshot.Connect(cfg.RedisURL)
		if err != nil {
			log.Println("⚠️ Redis unavailable, progress snapshots disabled:", err)
		} else {
			snapshots = snapshot.NewStore(client)
		}
	}

	campaignService := &service.CampaignService{
		Resolver:      roster.NewResolver(contactRepo),
		Dispatcher:    dispatcher.NewClient(cfg.DispatcherURL),
		NewDispatcher: func(baseURL string) dispatcher.CommandAPI { return dispatcher.NewClient(baseURL) },
		States:        stateRepo,
		Records:       recordRepo,
		Subscriber:    subscriber,
		Snapshots:     snapshots,
		PollInterval:  cfg.PollInterval,
		ConfirmReads:  cfg.ConfirmReads,
		ConfirmDelay:  cfg.ConfirmDelay,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		Snapshots:       snapshots,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.StartCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/resume", campaignController.ResumeCampaign)
	r.Post("/campaigns/{id}/reset", campaignController.ResetCampaign)
	r.Get("/campaigns/{id}/progress", campaignController.GetProgress)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	log.Println("🚀 Server running on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
