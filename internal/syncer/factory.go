package syncer

import (
	"database/sql"
	"time"

	"github.com/navid4x/ghesta/internal/connectivity"
	"github.com/navid4x/ghesta/internal/remote"
	"github.com/navid4x/ghesta/internal/storage"
)

// Stack bundles the sync layer the way the app wires it up.
type Stack struct {
	Service *Service
	Engine  *Engine
	Monitor *connectivity.Monitor
}

func NewStack(db *sql.DB, client *remote.Client, onEvent func(Event)) *Stack {
	installmentsRepo := storage.NewInstallmentsRepo(db)
	queueRepo := storage.NewQueueRepo(db)
	syncStateRepo := storage.NewSyncStateRepo(db)

	monitor := connectivity.New(client.Ping, connectivity.Config{})
	reconciler := NewReconciler(queueRepo, client)
	engine := NewEngine(
		Config{
			PollInterval: 60 * time.Second,
			Backoff:      []time.Duration{2 * time.Second, 5 * time.Second, 15 * time.Second, 60 * time.Second},
		},
		reconciler,
		syncStateRepo,
		monitor,
		onEvent,
	)

	return &Stack{
		Service: NewService(installmentsRepo, queueRepo, client),
		Engine:  engine,
		Monitor: monitor,
	}
}
