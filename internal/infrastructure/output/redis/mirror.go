package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
	"capsnap/internal/infrastructure/output/file"
)

// Mirror keeps the latest document of every symbol in one Redis hash and
// appends a record of each batch run to a stream.
type Mirror struct {
	rdb          *redis.Client
	ttl          time.Duration
	keySnapshots string // prefix + ":snapshots"
	runStream    string // prefix + ":runs"
	runChan      string // prefix + ":runs:pub"
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Mirror {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "capsnap"
	}
	return &Mirror{
		rdb:          rdb,
		ttl:          ttl,
		keySnapshots: prefix + ":snapshots",
		runStream:    prefix + ":runs",
		runChan:      prefix + ":runs:pub",
	}
}

func (m *Mirror) Name() string { return "redis" }

// Hash: field = symbol -> document json
func (m *Mirror) Write(ctx context.Context, symbol string, doc *model.Snapshot) error {
	b, err := file.Encode(doc)
	if err != nil {
		return &port.WriteError{Symbol: symbol, Err: err}
	}

	pipe := m.rdb.Pipeline()
	pipe.HSet(ctx, m.keySnapshots, symbol, string(b))
	if m.ttl > 0 {
		pipe.Expire(ctx, m.keySnapshots, m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &port.WriteError{Symbol: symbol, Err: err}
	}
	return nil
}

type runEvent struct {
	RunID     string   `json:"run_id"`
	Symbols   int      `json:"symbols"`
	Written   int      `json:"written"`
	Failed    []string `json:"failed"`
	StartedAt int64    `json:"started_at_ms"`
	EndedAt   int64    `json:"ended_at_ms"`
}

func (m *Mirror) ReportRun(ctx context.Context, s port.RunSummary) error {
	ev := newRunEvent(s)
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	_, err = m.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: m.runStream,
		Values: map[string]any{
			"run_id":  ev.RunID,
			"written": ev.Written,
			"failed":  len(ev.Failed),
			"payload": string(b),
		},
	}).Result()
	if err != nil {
		return err
	}
	return m.rdb.Publish(ctx, m.runChan, string(b)).Err()
}

func newRunEvent(s port.RunSummary) runEvent {
	failed := s.Failed
	if failed == nil {
		failed = []string{}
	}
	return runEvent{
		RunID:     s.RunID,
		Symbols:   s.Symbols,
		Written:   s.Written,
		Failed:    failed,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
	}
}

var (
	_ port.DocumentSink = (*Mirror)(nil)
	_ port.RunReporter  = (*Mirror)(nil)
)
