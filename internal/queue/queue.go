// Package queue provides the Redis-backed transport between the upload API
// and the background analysis worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultKey is the Redis list the API and worker share.
const DefaultKey = "genome:analysis:jobs"

// Job is one queued analysis request. Content travels with the job so the
// worker needs no access to the upload store.
type Job struct {
	AnalysisID string    `json:"analysis_id"`
	FileName   string    `json:"file_name"`
	Content    string    `json:"content"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue is a FIFO job list on Redis (LPUSH producer, BRPOP consumer).
type Queue struct {
	client *redis.Client
	key    string
	log    *logrus.Logger
}

// New creates a queue over an existing Redis client. An empty key selects
// DefaultKey.
func New(client *redis.Client, key string, logger *logrus.Logger) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{
		client: client,
		key:    key,
		log:    logger,
	}
}

// Enqueue pushes a job for the worker pool.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueuing job: %w", err)
	}

	q.log.WithFields(logrus.Fields{
		"analysis_id": job.AnalysisID,
		"file_name":   job.FileName,
		"queue":       q.key,
	}).Info("Analysis job enqueued")

	return nil
}

// Dequeue blocks up to timeout for the next job. A timeout with no job
// returns (nil, nil) so the caller can poll in a loop.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing job: %w", err)
	}

	// BRPOP returns [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(result))
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshaling job: %w", err)
	}
	return &job, nil
}

// Length reports the number of pending jobs.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("reading queue length: %w", err)
	}
	return n, nil
}
