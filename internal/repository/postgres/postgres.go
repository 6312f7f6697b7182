package postgres

import (
	"database/sql"

	"rental-order-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.Transactor
	repository.OrderRepository
	repository.DisputeRepository
	repository.ProofRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		Transactor:             NewTransactor(db),
		OrderRepository:        NewOrderRepository(db),
		DisputeRepository:      NewDisputeRepository(db),
		ProofRepository:        NewProofRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}
