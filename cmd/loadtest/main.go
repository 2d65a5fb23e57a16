// Command loadtest drives concurrent traffic at a running server and prints
// latency percentiles and a status-code histogram per endpoint.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 30s [-writes]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Writes      bool
	Questions   []string
}

// target is one kind of request the workers cycle through.
type target struct {
	name  string
	build func(ctx context.Context, baseURL, question string) (*http.Request, error)
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latenciesMu   sync.Mutex
	latencies     map[string][]time.Duration
	statusCodesMu sync.Mutex
	statusCodes   map[int]*atomic.Int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[string][]time.Duration),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(endpoint string, duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies[endpoint] = append(s.latencies[endpoint], duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the server")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	writes := flag.Bool("writes", false, "also submit searches to POST /api/chats")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Writes:      *writes,
		Questions: []string{
			"How do I request a modification of a support order?",
			"What is the interest rate on child support arrears?",
			"How is income withholding served on an employer?",
			"When can a case be closed for lack of contact?",
			"What documents are needed to open a case?",
			"How are payments distributed between current support and arrears?",
			"Can a license suspension be released early?",
			"What is the review and adjustment process?",
		},
	}

	fmt.Println("=== Policy Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Writes:      %t\n", cfg.Writes)
	fmt.Println()

	stats := runLoadTest(cfg, targets(cfg.Writes))
	printReport(stats, cfg.Duration)
}

func targets(writes bool) []target {
	ts := []target{
		{name: "GET /api/admin", build: func(ctx context.Context, base, _ string) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/admin", nil)
		}},
		{name: "POST /api/results/render", build: func(ctx context.Context, base, q string) (*http.Request, error) {
			return jsonRequest(ctx, base+"/api/results/render", map[string]any{
				"query_response": map[string]any{"summary": "**" + q + "**\n\n- Step one\n- Step two"},
				"citations": []map[string]any{
					{"id": 1, "title": "Policy Manual", "section": "3.1", "source": "DCSS", "url": "https://childsup.ca.gov/"},
					{"id": 2, "title": "Internal Letter", "source": "County", "url": nil},
				},
				"search_mode":  "summary",
				"search_query": q,
			})
		}},
	}
	if writes {
		ts = append(ts, target{name: "POST /api/chats", build: func(ctx context.Context, base, q string) (*http.Request, error) {
			return jsonRequest(ctx, base+"/api/chats", map[string]string{"question": q})
		}})
	}
	return ts
}

func jsonRequest(ctx context.Context, rawURL string, body any) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func runLoadTest(cfg Config, ts []target) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := workerID; ; i++ {
				if ctx.Err() != nil {
					return
				}
				t := ts[i%len(ts)]
				question := cfg.Questions[i%len(cfg.Questions)]

				req, err := t.build(ctx, cfg.BaseURL, question)
				if err != nil {
					fmt.Fprintf(os.Stderr, "building %s request: %v\n", t.name, err)
					return
				}

				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.RecordRequest(t.name, elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				stats.RecordRequest(t.name, elapsed, resp.StatusCode, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errors)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	endpoints := make([]string, 0, len(stats.latencies))
	for name := range stats.latencies {
		endpoints = append(endpoints, name)
	}
	sort.Strings(endpoints)
	for _, name := range endpoints {
		latencies := append([]time.Duration(nil), stats.latencies[name]...)
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		printLatency(name, latencies)
	}
	stats.latenciesMu.Unlock()

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the server running?")
		os.Exit(1)
	}
}

func printLatency(name string, sorted []time.Duration) {
	if len(sorted) == 0 {
		return
	}
	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg := sum / time.Duration(len(sorted))

	fmt.Println()
	fmt.Printf("=== Latency: %s (%d requests) ===\n", name, len(sorted))
	fmt.Printf("Min:    %s\n", sorted[0])
	fmt.Printf("Avg:    %s\n", avg)
	fmt.Printf("P50:    %s\n", percentile(sorted, 50))
	fmt.Printf("P90:    %s\n", percentile(sorted, 90))
	fmt.Printf("P95:    %s\n", percentile(sorted, 95))
	fmt.Printf("P99:    %s\n", percentile(sorted, 99))
	fmt.Printf("Max:    %s\n", sorted[len(sorted)-1])

	var sumSquared float64
	for _, l := range sorted {
		diff := float64(l) - float64(avg)
		sumSquared += diff * diff
	}
	fmt.Printf("StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(sorted)))))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
