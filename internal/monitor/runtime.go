package monitor

import (
	"context"
	"fmt"

	"github.com/shem-project/shem/internal/config"
	"github.com/shem-project/shem/internal/db"
	"github.com/shem-project/shem/internal/metrics"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/publish"
	"github.com/shem-project/shem/internal/sensor"
	"github.com/shem-project/shem/internal/simulation"
)

// Runtime is a fully wired Service with the resources it owns.
type Runtime struct {
	DB         *db.DB
	Readings   *db.ReadingRepository
	Events     *db.EventRepository
	Controller *simulation.Controller
	Service    *Service
	Publisher  publish.Publisher
	Metrics    *metrics.Metrics
}

// Open builds a Runtime from configuration. The database is migrated and
// the trend model is fitted from the existing history.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Runtime, error) {
	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	rt, err := OpenWithDB(ctx, cfg, database, m)
	if err != nil {
		database.Close()
		return nil, err
	}
	return rt, nil
}

// OpenWithDB builds a Runtime over an already opened database.
func OpenWithDB(ctx context.Context, cfg *config.Config, database *db.DB, m *metrics.Metrics) (*Runtime, error) {
	if _, err := database.MigrateUp(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	sim := cfg.Simulation
	strategy, err := simulation.NewStrategy(sim.Strategy, sim.CostRate, sim.Targets)
	if err != nil {
		return nil, err
	}

	publisher, err := publish.New(cfg.Publisher)
	if err != nil {
		return nil, err
	}

	readings := db.NewReadingRepository(database)
	eventRepo := db.NewEventRepository(database)
	sampler := sensor.NewSampler(sensor.NewSource(sim.Seed), sensor.WithMalfunctionRate(sim.MalfunctionRate))

	opts := []simulation.Option{
		simulation.WithCategories(sim.Categories),
		simulation.WithSeasonal(sim.Seasonal),
		simulation.WithScenarioMode(sim.ScenarioMode),
		simulation.WithEvents(eventRepo),
		simulation.WithMetrics(m),
		simulation.WithPublisher(publisher),
	}
	if sim.Scenario != "" {
		opts = append(opts, simulation.WithPinnedScenario(models.Scenario(sim.Scenario)))
	}
	controller := simulation.New(readings, sampler, strategy, opts...)

	service := New(readings, controller, WithEventLog(eventRepo), WithMetrics(m))
	if _, _, err := service.Rebuild(ctx); err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to build model: %w", err)
	}

	return &Runtime{
		DB:         database,
		Readings:   readings,
		Events:     eventRepo,
		Controller: controller,
		Service:    service,
		Publisher:  publisher,
		Metrics:    m,
	}, nil
}

// Close releases the publisher and the database.
func (r *Runtime) Close() error {
	var firstErr error
	if r.Publisher != nil {
		if err := r.Publisher.Close(); err != nil {
			firstErr = err
		}
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
