package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	LastRunKey      = "pipeline:last_run"
	RunsTotalKey    = "pipeline:runs_total"
	ScrapedTotalKey = "pipeline:listings_scraped_total"

	runKindScrape = "scrape"
	runKindScore  = "score"
	runKindCron   = "cron"
)

// RunStats is the summary of one pipeline run kept in redis.
type RunStats struct {
	RunID       string    `json:"run_id"`
	Kind        string    `json:"kind"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Scraped     int       `json:"scraped"`
	New         int       `json:"new"`
	Updated     int       `json:"updated"`
	Scored      int       `json:"scored"`
	Errors      int       `json:"errors"`
	ErrorSample []string  `json:"error_sample"`
}

// Status is what GET /pipeline/status reports.
type Status struct {
	LastRun      *RunStats `json:"last_run"`
	RunsTotal    int64     `json:"runs_total"`
	ScrapedTotal int64     `json:"listings_scraped_total"`
}

func (r *Runner) record(ctx context.Context, st RunStats) {
	if r.Redis == nil {
		return
	}
	body, err := json.Marshal(st)
	if err != nil {
		return
	}
	_, err = r.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, LastRunKey, body, 0)
		pipe.Incr(ctx, RunsTotalKey)
		if st.Scraped > 0 {
			pipe.IncrBy(ctx, ScrapedTotalKey, int64(st.Scraped))
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("run_id", st.RunID).Msg("Failed to record pipeline stats")
	}
}

// Status reads the run statistics. Without redis it returns an empty status.
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	out := &Status{}
	if r.Redis == nil {
		return out, nil
	}
	raw, err := r.Redis.Get(ctx, LastRunKey).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("read last run: %w", err)
	default:
		var st RunStats
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, fmt.Errorf("decode last run: %w", err)
		}
		out.LastRun = &st
	}
	if out.RunsTotal, err = r.counter(ctx, RunsTotalKey); err != nil {
		return nil, err
	}
	if out.ScrapedTotal, err = r.counter(ctx, ScrapedTotalKey); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Runner) counter(ctx context.Context, key string) (int64, error) {
	n, err := r.Redis.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	return n, nil
}
