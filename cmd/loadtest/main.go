package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stacksjs/ttlcache/adapters/nats"
	promadapter "github.com/stacksjs/ttlcache/adapters/prometheus"
	"github.com/stacksjs/ttlcache/core/cache"
)

// === Config ===

// NOTE: with BRIDGE=1 run nats first: docker run --net=host nats:latest

var (
	logLevel   = slog.LevelInfo
	N          = getEnvInt("N", 100_000)
	batchSize  = getEnvInt("B", 10_000)
	workers    = getEnvInt("W", runtime.NumCPU())
	ttlMs      = getEnvInt("TTL_MS", 2_000)
	checkMs    = getEnvInt("CHECK_MS", 500)
	maxKeys    = getEnvInt("MAX_KEYS", -1)
	useClones  = getEnvBool("CLONES", true)
	withBridge = getEnvBool("BRIDGE", false)
)

func getEnvBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	return v == "1" || strings.ToLower(v) == "true"
}

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

// === Domain ===

type Session struct {
	ID     string
	User   string
	Roles  []string
	Claims map[string]any
}

func newSession(i int) *Session {
	return &Session{
		ID:    fmt.Sprintf("session-%d", i),
		User:  fmt.Sprintf("user-%d", i%1_000),
		Roles: []string{"reader", "writer"},
		Claims: map[string]any{
			"iat": i,
			"scp": []any{"a", "b"},
		},
	}
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	reg := prometheus.NewRegistry()

	c := cache.NewTTL(
		cache.WithName("loadtest"),
		cache.WithLogger(log),
		cache.WithMetrics(promadapter.NewCacheMetrics(reg)),
		cache.WithStdTTL(time.Duration(ttlMs)*time.Millisecond),
		cache.WithCheckPeriod(time.Duration(checkMs)*time.Millisecond),
		cache.WithMaxKeys(maxKeys),
		cache.WithUseClones(useClones),
	)
	defer c.Close()

	var expired atomic.Int64
	c.On(cache.EventExpired, func(cache.Event) { expired.Add(1) })

	if withBridge {
		b, err := nats.NewBridge(nats.BridgeConfig{Log: log, Subject: "ttlcache.loadtest"})
		checkErr(err)
		defer func() { checkErr(b.Close()) }()
		b.Attach(c)
	}

	log.Info(
		"starting",
		slog.Int("n", N),
		slog.Int("workers", workers),
		slog.Int("ttl_ms", ttlMs),
		slog.Int("check_ms", checkMs),
		slog.Bool("clones", useClones),
		slog.Bool("bridge", withBridge),
	)

	// === write ===

	startAt := time.Now()
	lastTime := startAt
	var rejected int
	for i := 0; i < N; i++ {
		if err := c.Set(i, newSession(i)); err != nil {
			rejected++
		}
		if i > 0 && i%batchSize == 0 {
			lastTime = report("set", lastTime)
		}
	}
	writeTook := time.Since(startAt)

	// === read ===

	readAt := time.Now()
	var (
		wg     sync.WaitGroup
		loads  atomic.Int64
		misses atomic.Int64
	)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < N; i += workers {
				_, err := c.Fetch(i, func() (any, error) {
					loads.Add(1)
					return newSession(i), nil
				})
				if err != nil {
					misses.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	readTook := time.Since(readAt)

	// === expire ===

	time.Sleep(time.Duration(ttlMs+2*checkMs) * time.Millisecond)

	// === stats ===

	runtime.GC()
	mu := getMemUsage()
	st := c.Stats()

	println("==========================================")
	fmt.Printf("     writes/s: %d (%d rejected)\n", int(float64(N)/writeTook.Seconds()), rejected)
	fmt.Printf("      reads/s: %d (%d loads, %d failed)\n", int(float64(N)/readTook.Seconds()), loads.Load(), misses.Load())
	fmt.Printf("  hits/misses: %d / %d\n", st.Hits, st.Misses)
	fmt.Printf(" keys (after): %d\n", st.Keys)
	fmt.Printf("      expired: %d\n", expired.Load())
	fmt.Printf("          mem: %d / %d MiB (sys)\n", mu.Alloc/1024/1024, mu.Sys/1024/1024)

	mfs, err := reg.Gather()
	checkErr(err)
	for _, mf := range mfs {
		fmt.Printf("       metric: %s (%d series)\n", mf.GetName(), len(mf.GetMetric()))
	}
}

func report(op string, since time.Time) time.Time {
	mu := getMemUsage()
	n := time.Now()
	took := n.Sub(since)
	fmt.Printf(" | %s | %5d ops | %6d ms | %8d ops/s | (%d / %d) MiB mem (sys) |\n", op, batchSize, took.Milliseconds(), int(float64(batchSize)/took.Seconds()), mu.Alloc/1024/1024, mu.Sys/1024/1024)
	return n
}

// === stats helpers ===

type MemUsage struct {
	Alloc uint64 // bytes allocated and not yet freed (heap)
	Sys   uint64 // total bytes obtained from OS
	NumGC uint32 // gc cycles
}

func getMemUsage() MemUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemUsage{
		Alloc: m.Alloc,
		Sys:   m.Sys,
		NumGC: m.NumGC,
	}
}

// === Helpers ===

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}
