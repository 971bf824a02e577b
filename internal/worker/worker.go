// Package worker provides async analysis processing from the event bus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/openrisk-labs/kestrel/internal/domain"
	"github.com/openrisk-labs/kestrel/internal/workflow"
)

// Worker consumes analysis requests from the EventBus and runs them through
// the workflow controller. Completion and alert events are published by the
// controller itself.
type Worker struct {
	bus        domain.EventBus
	controller *workflow.Controller

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates an async analysis worker.
func NewWorker(bus domain.EventBus, controller *workflow.Controller) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:        bus,
		controller: controller,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to the analysis request topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicAnalysisRequested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("analysis worker started", "topic", domain.TopicAnalysisRequested)
	return nil
}

// AnalysisRequest is the message payload for async analysis.
type AnalysisRequest struct {
	RequestID string        `json:"requestId,omitempty"`
	Sector    string        `json:"sector"`
	Data      domain.Record `json:"data"`
}

// handleMessage runs one queued analysis.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var req AnalysisRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse analysis request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	sector, err := domain.ParseSector(req.Sector)
	if err != nil {
		slog.Error("analysis request with unknown sector",
			"message_id", msg.ID,
			"sector", req.Sector,
		)
		return err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = msg.ID
	}

	slog.Debug("processing analysis request",
		"request_id", requestID,
		"sector", sector,
	)

	analysis, err := w.controller.Analyze(ctx, sector, req.Data)
	if err != nil {
		slog.Error("async analysis failed",
			"request_id", requestID,
			"sector", sector,
			"error", err,
		)
		return err
	}

	slog.Info("analysis request processed",
		"request_id", requestID,
		"sector", sector,
		"score", analysis.Result.FraudScore,
		"risk_level", analysis.Result.RiskLevel,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("analysis worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
