package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"time"

	"carimport-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	StatusOK    = "ok"
	StatusIssue = "issue"

	pingTimeout = 3 * time.Second
)

// DBPinger is optional. If nil, the database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// Result is the /health/json payload and the dashboard's data.
type Result struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapInMB int `json:"heapInUseMb"`
}

type TrafficInfo struct {
	TotalRequests   int                    `json:"totalRequests"`
	SuccessCount    int                    `json:"successCount"`
	FailedCount     int                    `json:"failedCount"`
	SuccessRate     string                 `json:"successRate"`
	AvgResponseTime string                 `json:"avgResponseTime"`
	LastRequest     map[string]interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// Collector gathers dependency and traffic health. Targets are external
// services pinged with a GET (name -> URL), e.g. the listing site and the
// exchange-rate API.
type Collector struct {
	Redis   *redis.Client
	DB      DBPinger
	Targets map[string]string
	Client  *http.Client
	Now     func() time.Time
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Collect never fails; unreachable parts are reported in the result.
// Status is ok only when both the database and redis answer.
func (c *Collector) Collect(ctx context.Context) Result {
	result := Result{Dependencies: make(map[string]DepStatus)}

	dbStatus := DepStatus{Status: "disconnected"}
	if c.DB != nil {
		start := time.Now()
		if err := c.DB.Ping(); err == nil {
			ms := time.Since(start).Milliseconds()
			dbStatus = DepStatus{Status: "connected", PingMs: &ms}
		} else {
			dbStatus.Status = "error"
		}
	}
	result.Dependencies["database"] = dbStatus

	startMs := c.now().UnixMilli()
	redisStatus := DepStatus{Status: "disconnected"}
	traffic := TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	if c.Redis != nil {
		start := time.Now()
		if err := c.Redis.Ping(ctx).Err(); err == nil {
			ms := time.Since(start).Milliseconds()
			redisStatus = DepStatus{Status: "connected", PingMs: &ms}
			traffic, startMs = c.traffic(ctx, startMs)
		} else {
			redisStatus.Status = "error"
		}
	}
	result.Dependencies["redis"] = redisStatus
	result.Traffic = traffic

	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := DepStatus{Status: "unreachable"}
		if ms := c.ping(ctx, c.Targets[name]); ms != nil {
			st = DepStatus{Status: "reachable", PingMs: ms}
		}
		result.Dependencies[name] = st
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (c.now().UnixMilli() - startMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapInMB: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	result.Status = StatusIssue
	if dbStatus.Status == "connected" && redisStatus.Status == "connected" {
		result.Status = StatusOK
	}
	return result
}

// traffic reads the request counters. The first call stamps the start time.
func (c *Collector) traffic(ctx context.Context, nowMs int64) (TrafficInfo, int64) {
	stats := TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	vals, err := c.Redis.MGet(ctx,
		middleware.KeyReqTotal,
		middleware.KeyReqErrors,
		middleware.KeyResTime,
		middleware.KeyResCount,
		middleware.KeyStartTime,
		middleware.KeyLastReq,
	).Result()
	if err != nil {
		return stats, nowMs
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	startMs := nowMs
	if t, err := strconv.ParseInt(str(4), 10, 64); err == nil {
		startMs = t
	} else {
		c.Redis.Set(ctx, middleware.KeyStartTime, nowMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(str(0))
	stats.FailedCount, _ = strconv.Atoi(str(1))
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	count, _ := strconv.Atoi(str(3))
	if count > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if s := str(5); s != "" {
		_ = json.Unmarshal([]byte(s), &stats.LastRequest)
	}
	return stats, startMs
}

func (c *Collector) ping(ctx context.Context, url string) *int64 {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	ms := time.Since(start).Milliseconds()
	return &ms
}

// Reset clears the request counters and restarts the uptime clock.
func (c *Collector) Reset(ctx context.Context) error {
	if c.Redis == nil {
		return nil
	}
	keys := []string{
		middleware.KeyReqTotal,
		middleware.KeyReqErrors,
		middleware.KeyResTime,
		middleware.KeyResCount,
		middleware.KeyStartTime,
		middleware.KeyLastReq,
		middleware.KeyErrorLog,
	}
	if err := c.Redis.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	return c.Redis.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(c.now().UnixMilli(), 10), 0).Err()
}

// RecentErrors returns up to n entries of the error log, newest first.
func (c *Collector) RecentErrors(ctx context.Context, n int64) ([]map[string]interface{}, error) {
	out := []map[string]interface{}{}
	if c.Redis == nil {
		return out, nil
	}
	entries, err := c.Redis.LRange(ctx, middleware.KeyErrorLog, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	for _, s := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s), &m) == nil && m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}
