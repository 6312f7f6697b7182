// Package app assembles the repositories, downstream clients, notification
// channels and services from a loaded configuration. Both the API server
// and the cronjob runner start from Build.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"rental-order-backend/internal/client"
	"rental-order-backend/internal/clock"
	"rental-order-backend/internal/config"
	"rental-order-backend/internal/jobs"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/notify"
	"rental-order-backend/internal/repository"
	"rental-order-backend/internal/repository/memory"
	"rental-order-backend/internal/repository/postgres"
	"rental-order-backend/internal/service"
	"rental-order-backend/internal/storage"
)

// Repositories is the persistence surface shared by every service
type Repositories struct {
	Tx            repository.Transactor
	Orders        repository.OrderRepository
	Disputes      repository.DisputeRepository
	Proofs        repository.ProofRepository
	Notifications repository.NotificationRepository
}

type App struct {
	Config *config.Config
	Clock  clock.Clock
	Repos  Repositories

	Orders        service.OrderService
	Disputes      service.DisputeService
	Proofs        service.ProofService
	Notifications service.NotificationService

	db *sql.DB
}

// Build wires the application. Close releases what Build opened.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Clock: clock.Real()}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	inventory := client.NewInventoryClient(endpoint(cfg.Clients.Inventory))
	profiles := client.NewUserProfileClient(endpoint(cfg.Clients.UserProfile))
	advisor := client.NewAdvisoryClient(endpoint(cfg.Clients.Advisory))

	dispatcher, err := buildDispatcher(ctx, cfg, a.Repos.Notifications, profiles)
	if err != nil {
		a.Close()
		return nil, err
	}
	coord := service.NewCoordinator(inventory, profiles, dispatcher)

	files, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.MaxFileBytes())
	if err != nil {
		a.Close()
		return nil, err
	}
	policy := storage.Policy{MaxBytes: cfg.Storage.MaxFileBytes(), AllowedContentTypes: cfg.Storage.AllowedTypes}

	r := a.Repos
	a.Orders = service.NewOrderService(r.Tx, r.Orders, coord, a.Clock)
	a.Disputes = service.NewDisputeService(r.Tx, r.Orders, r.Disputes, r.Proofs, coord, advisor, a.Clock)
	a.Proofs = service.NewProofService(r.Tx, r.Orders, r.Proofs, files, policy, coord, a.Clock)
	a.Notifications = service.NewNotificationService(r.Notifications)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	if cfg.Storage.Type == "memory" {
		logger.Warn("Using in-memory storage, state is lost on restart")
		s := memory.NewStore()
		a.Repos = Repositories{Tx: s, Orders: s.OrderRepository, Disputes: s.DisputeRepository, Proofs: s.ProofRepository, Notifications: s.NotificationRepository}
		return nil
	}

	logger.Debug("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	a.db = db
	s := postgres.NewStore(db)
	a.Repos = Repositories{Tx: s, Orders: s.OrderRepository, Disputes: s.DisputeRepository, Proofs: s.ProofRepository, Notifications: s.NotificationRepository}
	return nil
}

// JobRunner returns a runner for the reconciler sweeps over this app
func (a *App) JobRunner() *jobs.JobRunner {
	return jobs.NewJobRunner(a.Repos.Orders, a.Repos.Disputes, &jobs.Services{Order: a.Orders, Dispute: a.Disputes}, a.Clock, a.Config)
}

func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}
}

func endpoint(ep config.ServiceEndpoint) client.Config {
	return client.Config{BaseURL: ep.BaseURL, APIKey: ep.APIKey, Timeout: ep.Timeout}
}

// buildDispatcher always delivers in-app, plus email and push when configured
func buildDispatcher(ctx context.Context, cfg *config.Config, notes repository.NotificationRepository, contacts notify.ContactLookup) (*notify.Dispatcher, error) {
	channels := []notify.Channel{notify.NewInAppChannel(notes)}

	email := cfg.Notification.Email
	switch email.Provider {
	case "sendgrid":
		logger.Info("Email notifications via SendGrid", "from", email.From)
		channels = append(channels, notify.NewEmailChannel(contacts, notify.NewSendGridSender(email.SendGridAPIKey, email.From, email.FromName)))
	case "smtp":
		logger.Info("Email notifications via SMTP", "host", email.SMTP.Host, "port", email.SMTP.Port)
		channels = append(channels, notify.NewEmailChannel(contacts, notify.NewSMTPSender(email.SMTP.Host, email.SMTP.Port, email.SMTP.User, email.SMTP.Password, email.From)))
	}

	if file := cfg.Notification.Push.CredentialsFile; file != "" {
		push, err := notify.NewFirebasePushChannel(ctx, file)
		if err != nil {
			return nil, err
		}
		logger.Info("Push notifications via Firebase Cloud Messaging")
		channels = append(channels, push)
	}

	return notify.NewDispatcher(notify.DefaultCatalog(), channels...), nil
}
