package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// GradingEvent represents one lifecycle event of a grading request
type GradingEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	SlideURL       string                 `json:"slide_url"`
	Profile        string                 `json:"profile,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	Grade          string                 `json:"grade,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of grading event
type EventType string

const (
	// GradingStarted when grading begins
	GradingStarted EventType = "grading_started"
	// GradingCompleted when grading finishes successfully
	GradingCompleted EventType = "grading_completed"
	// GradingFailed when grading fails
	GradingFailed EventType = "grading_failed"
	// SlideFetched when the slide is successfully fetched
	SlideFetched EventType = "slide_fetched"
	// SlideFetchFailed when the slide fetch fails
	SlideFetchFailed EventType = "slide_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event GradingEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event GradingEvent)
}

// LoggingObserver logs grading events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles grading events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event GradingEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"slide_url":       event.SlideURL,
		"profile":         event.Profile,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.Grade != "" {
		fields["grade"] = event.Grade
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	switch event.EventType {
	case GradingStarted:
		o.logger.WithFields(fields).Info("Slide grading started")
	case GradingCompleted:
		o.logger.WithFields(fields).Info("Slide grading completed")
	case GradingFailed:
		o.logger.WithFields(fields).Error("Slide grading failed")
	case SlideFetched:
		o.logger.WithFields(fields).Debug("Slide fetched successfully")
	case SlideFetchFailed:
		o.logger.WithFields(fields).Error("Slide fetch failed")
	default:
		o.logger.WithFields(fields).Info("Grading event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects metrics from grading events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalGradings       int64
	successfulGradings  int64
	failedGradings      int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles grading events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event GradingEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case GradingStarted:
		o.totalGradings++
	case GradingCompleted:
		o.successfulGradings++
		o.totalProcessingTime += event.ProcessingTime
	case GradingFailed:
		o.failedGradings++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulGradings > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulGradings)
	}

	return map[string]interface{}{
		"total_gradings":        o.totalGradings,
		"successful_gradings":   o.successfulGradings,
		"failed_gradings":       o.failedGradings,
		"total_processing_time": o.totalProcessingTime,
		"avg_processing_time":   avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event GradingEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Notify observers concurrently
	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
