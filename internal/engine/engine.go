package engine

import (
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/common/config"
	"github.com/hirosato/ledger-engine/backend/internal/domain/account"
	"github.com/hirosato/ledger-engine/backend/internal/domain/ledger"
	"github.com/hirosato/ledger-engine/backend/internal/domain/posting"
	"github.com/hirosato/ledger-engine/backend/internal/platform/kafka"
	"github.com/hirosato/ledger-engine/backend/internal/platform/stores"
)

// Engine is the ledger service graph shared by the API and MCP entry points
type Engine struct {
	Accounts *account.Service
	Ledger   *ledger.Service
	Postings posting.Registry

	publisher *kafka.Publisher
}

// New wires the services over s. Ledger events go to Kafka when brokers are configured.
func New(cfg *config.Config, s *stores.Stores, logger *zap.Logger) *Engine {
	e := &Engine{}

	recorder := ledger.NewRecorder(s.Ledger, ledger.NewNumberGenerator(s.Sequence), logger)
	if cfg.PublishesEvents() {
		e.publisher = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		recorder = recorder.WithPublisher(e.publisher)
		logger.Info("publishing ledger events",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	}

	e.Accounts = account.NewService(s.Accounts, logger)
	e.Ledger = ledger.NewService(s.Ledger, s.Accounts, logger).WithPageLimit(cfg.TrailPageLimit)
	e.Postings = posting.NewRegistry(posting.NewPoster(recorder, e.Accounts, s.Ledger, logger), s.Documents)
	return e
}

// Close flushes and closes the event publisher, if any
func (e *Engine) Close() error {
	if e.publisher == nil {
		return nil
	}
	return e.publisher.Close()
}
