package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"solarcast/internal/metrics"
	"solarcast/internal/models"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Default stream names shared by RemoteRegressor and Worker
const (
	DefaultInputStream  = "predict_input"
	DefaultOutputStream = "predict_output"
)

// streamMaxLen bounds both streams after each completed job
const streamMaxLen = 500

// Job is a batch of feature rows published to the input stream
type Job struct {
	JobID    string      `json:"job_id"`
	Features []string    `json:"features"`
	Rows     [][]float64 `json:"rows"`
}

// Result is the worker's answer for one Job, published to the output stream
type Result struct {
	JobID       string    `json:"job_id"`
	Predictions []float64 `json:"predictions,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// RemoteRegressor delegates prediction to a worker over Redis streams.
// It publishes a Job and polls the output stream for the Result with the same job_id.
type RemoteRegressor struct {
	client       *redis.Client
	inputStream  string
	outputStream string
	timeout      time.Duration
	pollInterval time.Duration
}

// NewRemoteRegressor creates a stream-backed regressor. Empty stream names use the defaults.
func NewRemoteRegressor(client *redis.Client, inputStream, outputStream string, timeout time.Duration) *RemoteRegressor {
	if inputStream == "" {
		inputStream = DefaultInputStream
	}
	if outputStream == "" {
		outputStream = DefaultOutputStream
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &RemoteRegressor{
		client:       client,
		inputStream:  inputStream,
		outputStream: outputStream,
		timeout:      timeout,
		pollInterval: 500 * time.Millisecond,
	}
}

func (r *RemoteRegressor) FeatureNames() []string {
	return FeatureNames()
}

func (r *RemoteRegressor) Predict(features [][]float64) (predictions []float64, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordPredictorCall("redis", time.Since(start), err)
	}()

	if err := checkRows(features); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	jobID := "predict_" + uuid.NewString()

	// Only results published after the job are of interest
	lastID := "0-0"
	lastMessages, err := r.client.XRevRangeN(ctx, r.outputStream, "+", "-", 1).Result()
	if err == nil && len(lastMessages) > 0 {
		lastID = lastMessages[0].ID
	}

	data, err := json.Marshal(Job{JobID: jobID, Features: FeatureNames(), Rows: features})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction job: %w", err)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.inputStream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to publish to %s: %v", models.ErrPredictorUnavailable, r.inputStream, err)
	}

	log.Printf("Published %d rows to %s (job_id: %s)", len(features), r.inputStream, jobID)

	for {
		streams, err := r.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{r.outputStream, lastID},
			Count:   100,
			Block:   r.pollInterval,
		}).Result()

		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout waiting for job %s", models.ErrPredictorUnavailable, jobID)
		}
		if err == redis.Nil {
			continue
		}
		if err != nil {
			log.Printf("Error reading from %s: %v", r.outputStream, err)
			time.Sleep(r.pollInterval)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID

				result, err := decodeResult(msg.Values)
				if err != nil {
					log.Printf("Skipping message %s: %v", msg.ID, err)
					continue
				}
				if result.JobID != jobID {
					continue
				}

				r.client.XTrimMaxLen(ctx, r.inputStream, streamMaxLen)
				r.client.XTrimMaxLen(ctx, r.outputStream, streamMaxLen)

				if result.Error != "" {
					return nil, fmt.Errorf("remote predictor failed job %s: %s", jobID, result.Error)
				}
				return result.Predictions, nil
			}
		}
	}
}

func decodeResult(values map[string]interface{}) (Result, error) {
	var result Result
	data, ok := values["data"].(string)
	if !ok {
		return result, fmt.Errorf("message has no 'data' field")
	}
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return result, fmt.Errorf("failed to parse prediction result: %w", err)
	}
	return result, nil
}

// Worker serves prediction jobs from the input stream with a local Regressor
type Worker struct {
	client        *redis.Client
	regressor     Regressor
	inputStream   string
	outputStream  string
	group         string
	consumer      string
	retryInterval time.Duration
}

// NewWorker creates a stream worker. Empty stream names use the defaults.
func NewWorker(client *redis.Client, regressor Regressor, inputStream, outputStream, group, consumer string) *Worker {
	if inputStream == "" {
		inputStream = DefaultInputStream
	}
	if outputStream == "" {
		outputStream = DefaultOutputStream
	}
	return &Worker{
		client:        client,
		regressor:     regressor,
		inputStream:   inputStream,
		outputStream:  outputStream,
		group:         group,
		consumer:      consumer,
		retryInterval: time.Second,
	}
}

// Run consumes jobs until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	err := w.client.XGroupCreateMkStream(ctx, w.inputStream, w.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		streams, err := w.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.group,
			Consumer: w.consumer,
			Streams:  []string{w.inputStream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if ctx.Err() != nil {
			return nil
		}

		if err != nil && err != redis.Nil {
			log.Printf("Error reading from %s: %v", w.inputStream, err)
			if !w.backoff(ctx) {
				return nil
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				result := w.Handle(msg.Values)

				data, err := json.Marshal(result)
				if err != nil {
					log.Printf("Failed to marshal result for job %s: %v", result.JobID, err)
					continue
				}

				err = w.client.XAdd(ctx, &redis.XAddArgs{
					Stream: w.outputStream,
					Values: map[string]interface{}{"data": string(data)},
				}).Err()
				if err != nil {
					log.Printf("Failed to publish result for job %s: %v", result.JobID, err)
					continue
				}

				w.client.XAck(ctx, w.inputStream, w.group, msg.ID)
			}
		}
	}
}

// backoff waits out a failed read. It reports false once ctx is done.
func (w *Worker) backoff(ctx context.Context) bool {
	timer := time.NewTimer(w.retryInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Handle answers a single job message. Failures are reported in Result.Error.
func (w *Worker) Handle(values map[string]interface{}) Result {
	data, ok := values["data"].(string)
	if !ok {
		return Result{Error: "message has no 'data' field"}
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return Result{Error: fmt.Sprintf("failed to parse job: %v", err)}
	}

	if !sameFeatures(job.Features, w.regressor.FeatureNames()) {
		return Result{JobID: job.JobID, Error: fmt.Sprintf("features %v do not match model features %v", job.Features, w.regressor.FeatureNames())}
	}

	predictions, err := w.regressor.Predict(job.Rows)
	if err != nil {
		return Result{JobID: job.JobID, Error: err.Error()}
	}

	log.Printf("✓ Job %s: %d predictions", job.JobID, len(predictions))
	return Result{JobID: job.JobID, Predictions: predictions}
}
