package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 30
	testDuration = 10 * time.Second
	chartHoursHi = 72
)

var feedKeys = []string{
	"sound-sensor",
	"gas-sensor",
	"temperature",
	"humidity",
	"motion-detector",
	"ultrasonic-distance",
	"ultrasonic-distance2",
}

var httpClient = &http.Client{
	Timeout: 20 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== IoT Dashboard Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Feeds: %d\n\n", numWorkers, testDuration, len(feedKeys))

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: Cacheable reads only. Warms the response cache and shows the
	// hit-path latency floor.
	fmt.Println("\n--- Phase 1: Cacheable reads (feeds, last-all, status) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.40:
			return doGetFeeds()
		case r < 0.70:
			return doGetLastAll()
		default:
			return doGetStatus()
		}
	})

	// Phase 2: Mixed read load including per-feed and chart fetches.
	fmt.Println("\n--- Phase 2: Mixed reads (100% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.25:
			return doGetFeeds()
		case r < 0.45:
			return doGetFeed(rng)
		case r < 0.65:
			return doGetLastAll()
		case r < 0.85:
			return doGetChart(rng)
		default:
			return doGetStatus()
		}
	})

	// Phase 3: Reads with a trickle of data writes. Writes go upstream, so
	// their share is kept low to respect the remote rate limit.
	fmt.Println("\n--- Phase 3: Reads + 5% data writes ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.05:
			return doPostData(rng)
		case r < 0.35:
			return doGetFeeds()
		case r < 0.60:
			return doGetLastAll()
		case r < 0.85:
			return doGetChart(rng)
		default:
			return doGetStatus()
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-28s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 94))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-28s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 94))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func get(endpoint, url string, wantStatus int) result {
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != wantStatus}
}

func doGetFeeds() result {
	return get("GET /api/feeds", baseURL+"/api/feeds", 200)
}

func doGetFeed(rng *rand.Rand) result {
	key := feedKeys[rng.Intn(len(feedKeys))]
	return get("GET /api/feeds/{key}", baseURL+"/api/feeds/"+key, 200)
}

func doGetLastAll() result {
	return get("GET /api/feeds/data/last-all", baseURL+"/api/feeds/data/last-all", 200)
}

func doGetStatus() result {
	return get("GET /api/feeds/status", baseURL+"/api/feeds/status", 200)
}

func doGetChart(rng *rand.Rand) result {
	key := feedKeys[rng.Intn(len(feedKeys))]
	hours := rng.Intn(chartHoursHi) + 1
	url := fmt.Sprintf("%s/api/feeds/%s/chart?hours=%d", baseURL, key, hours)
	return get("GET /api/feeds/{key}/chart", url, 200)
}

func doPostData(rng *rand.Rand) result {
	key := feedKeys[rng.Intn(len(feedKeys))]
	body := map[string]interface{}{
		"value": fmt.Sprintf("%.1f", rng.Float64()*100),
	}

	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/api/feeds/"+key+"/data", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /api/feeds/{key}/data", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /api/feeds/{key}/data", resp.StatusCode, lat, resp.StatusCode != 201}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
