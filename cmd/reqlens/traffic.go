package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reqlens/reqlens/internal/config"
)

// trafficGenerator drives the demo routes with a paced stream of requests so
// the dashboard shows live data without an external load tool.
type trafficGenerator struct {
	baseURL string
	rate    int
	workers int
	logger  *zap.Logger
	client  *http.Client
}

func newTrafficGenerator(cfg *config.Config, logger *zap.Logger) *trafficGenerator {
	addr := cfg.Dashboard.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return &trafficGenerator{
		baseURL: "http://" + addr,
		rate:    cfg.Demo.RateRPS,
		workers: cfg.Demo.Workers,
		logger:  logger,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// demoTargets weights the routes so the endpoint table has an uneven,
// realistic shape: mostly fast reads, some writes, a slow tail.
var demoTargets = []struct {
	method string
	path   string
	weight int
}{
	{http.MethodGet, "/users", 30},
	{http.MethodGet, "/users/%d", 30},
	{http.MethodPost, "/orders", 15},
	{http.MethodGet, "/", 10},
	{http.MethodGet, "/flaky", 10},
	{http.MethodGet, "/slow", 4},
	{http.MethodGet, "/error", 1},
}

func pickTarget() (method, path string) {
	total := 0
	for _, t := range demoTargets {
		total += t.weight
	}
	n := rand.Intn(total)
	for _, t := range demoTargets {
		if n < t.weight {
			path = t.path
			if strings.Contains(path, "%d") {
				path = fmt.Sprintf(path, 1+rand.Intn(50))
			}
			return t.method, path
		}
		n -= t.weight
	}
	return http.MethodGet, "/"
}

func (g *trafficGenerator) run(ctx context.Context) {
	// Give the server a moment to start listening.
	select {
	case <-time.After(250 * time.Millisecond):
	case <-ctx.Done():
		return
	}

	g.logger.Info("demo traffic started",
		zap.Int("rate", g.rate),
		zap.Int("workers", g.workers),
	)

	limiter := rate.NewLimiter(rate.Limit(g.rate), g.rate)

	var wg sync.WaitGroup
	for i := 0; i < g.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				g.hit(ctx)
			}
		}()
	}
	wg.Wait()
}

func (g *trafficGenerator) hit(ctx context.Context) {
	method, path := pickTarget()
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, nil)
	if err != nil {
		return
	}
	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			g.logger.Debug("demo request failed", zap.Error(err))
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
