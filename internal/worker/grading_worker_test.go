package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/essay-grader/internal/models"
	"github.com/RubachokBoss/essay-grader/internal/service"
	"github.com/RubachokBoss/essay-grader/internal/worker/queue"
)

type fakeConsumer struct {
	msgs chan queue.Message
}

func (c *fakeConsumer) Consume(context.Context) (<-chan queue.Message, error) { return c.msgs, nil }
func (c *fakeConsumer) GetQueueLength() (int, error)                         { return len(c.msgs), nil }
func (c *fakeConsumer) Close() error                                         { return nil }

type fakeProcessor struct {
	mu   sync.Mutex
	seen []string
	errs map[string]error
}

func (p *fakeProcessor) Process(_ context.Context, job models.GradingRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, job.ReportID)
	return p.errs[job.ReportID]
}

// ackRecorder captures how each message was settled.
type ackRecorder struct {
	mu      sync.Mutex
	settled map[string]string
	wg      sync.WaitGroup
}

func (r *ackRecorder) message(t *testing.T, id string, body []byte) queue.Message {
	t.Helper()
	r.wg.Add(1)
	settle := func(outcome string) {
		r.mu.Lock()
		r.settled[id] = outcome
		r.mu.Unlock()
		r.wg.Done()
	}
	return queue.Message{
		Body:      body,
		Timestamp: time.Now(),
		Ack:       func(bool) error { settle("ack"); return nil },
		Nack: func(_ bool, requeue bool) error {
			settle(fmt.Sprintf("nack requeue=%v", requeue))
			return nil
		},
	}
}

func jobBody(t *testing.T, id string) []byte {
	t.Helper()
	body, err := json.Marshal(models.GradingRequestedEvent{ReportID: id})
	require.NoError(t, err)
	return body
}

func TestGradingWorker_SettlesMessages(t *testing.T) {
	processor := &fakeProcessor{errs: map[string]error{
		"graded-but-failed": fmt.Errorf("%w: provider down", service.ErrGradingFailed),
		"unknown":           service.ErrReportNotFound,
		"db-down":           errors.New("connection refused"),
	}}
	consumer := &fakeConsumer{msgs: make(chan queue.Message, 10)}
	rec := &ackRecorder{settled: map[string]string{}}

	consumer.msgs <- rec.message(t, "ok", jobBody(t, "ok"))
	consumer.msgs <- rec.message(t, "graded-but-failed", jobBody(t, "graded-but-failed"))
	consumer.msgs <- rec.message(t, "unknown", jobBody(t, "unknown"))
	consumer.msgs <- rec.message(t, "db-down", jobBody(t, "db-down"))
	consumer.msgs <- rec.message(t, "garbage", []byte("{not json"))

	w := NewGradingWorker(NewWorkerPool(2, 4, zerolog.Nop()), consumer, processor, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))

	rec.wg.Wait()
	require.NoError(t, w.Stop())

	assert.Equal(t, map[string]string{
		"ok":                "ack",
		"graded-but-failed": "ack",
		"unknown":           "ack",
		"db-down":           "nack requeue=true",
		"garbage":           "ack",
	}, rec.settled)

	stats := w.GetStats()
	assert.Equal(t, 1, stats.TotalProcessed)
	assert.Equal(t, 4, stats.FailedJobs)
	assert.ElementsMatch(t, []string{"ok", "graded-but-failed", "unknown", "db-down"}, processor.seen)
}

func TestGradingWorker_StopWithoutMessages(t *testing.T) {
	consumer := &fakeConsumer{msgs: make(chan queue.Message)}
	w := NewGradingWorker(NewWorkerPool(1, 1, zerolog.Nop()), consumer, &fakeProcessor{}, zerolog.Nop())

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.Equal(t, WorkerStats{}, w.GetStats())
}
