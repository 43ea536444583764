package container

import (
	"fmt"
	"net/http"

	"go-histopath/internal/config"
	"go-histopath/internal/factory"
	"go-histopath/internal/logger"
	"go-histopath/internal/observer"
	"go-histopath/internal/repository"
	"go-histopath/internal/service"
	"go-histopath/internal/storage"
	"go-histopath/internal/strategy"
	"go-histopath/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	slideFetcher    storage.SlideFetcher
	slideRepository repository.SlideRepository
	profiles        *strategy.ProfileRegistry
	metrics         *observer.MetricsObserver
	gradingService  service.GradingService
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	// Build dependency graph
	profiles := strategy.NewProfileRegistry()
	factories := factory.NewComponentFactory(profiles)
	slideFetcher, err := factories.StorageFactory.CreateStorage(
		factory.StorageType(cfg.StorageBackend), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}

	slideRepository := repository.NewSlideRepository(slideFetcher, cfg.MaxSlideDimension, cfg.SlideFetchTimeout)

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	gradingService := service.NewGradingService(slideRepository, profiles, publisher)
	handler := transport.NewHandler(gradingService, metrics, cfg)

	return &Container{
		config:          cfg,
		slideFetcher:    slideFetcher,
		slideRepository: slideRepository,
		profiles:        profiles,
		metrics:         metrics,
		gradingService:  gradingService,
		handler:         handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases service resources (cached graders and their worker pools)
func (c *Container) Close() error {
	return c.gradingService.Close()
}
