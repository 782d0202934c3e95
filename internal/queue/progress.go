package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/genome-trait-server/internal/domain"
)

// ProgressEvent is one progress update published while a run executes. The
// API relays these to websocket subscribers.
type ProgressEvent struct {
	AnalysisID string                `json:"analysis_id"`
	Status     domain.AnalysisStatus `json:"status"`
	Processed  int                   `json:"processed_batches"`
	Total      int                   `json:"total_batches"`
	Error      string                `json:"error,omitempty"`
}

// progressChannel names the per-analysis pub/sub channel.
func progressChannel(analysisID string) string {
	return "genome:analysis:progress:" + analysisID
}

// ProgressPublisher fans progress events out over Redis pub/sub.
type ProgressPublisher struct {
	client *redis.Client
}

// NewProgressPublisher creates a publisher over an existing Redis client.
func NewProgressPublisher(client *redis.Client) *ProgressPublisher {
	return &ProgressPublisher{client: client}
}

// Publish sends one event. Publishing is best effort: a dropped event only
// degrades the progress display, never the run.
func (p *ProgressPublisher) Publish(ctx context.Context, event ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling progress event: %w", err)
	}
	if err := p.client.Publish(ctx, progressChannel(event.AnalysisID), payload).Err(); err != nil {
		return fmt.Errorf("publishing progress event: %w", err)
	}
	return nil
}

// Subscribe opens a subscription for one analysis' progress events. The
// returned channel closes when ctx is cancelled.
func (p *ProgressPublisher) Subscribe(ctx context.Context, analysisID string) (<-chan ProgressEvent, error) {
	sub := p.client.Subscribe(ctx, progressChannel(analysisID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribing to progress channel: %w", err)
	}

	events := make(chan ProgressEvent)
	go func() {
		defer close(events)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event ProgressEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}
