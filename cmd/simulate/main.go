// Command simulate fires concurrent bookings for the same slot at a running
// api-server and reports how many succeeded. Exactly one should.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/clinic-scheduling-assistant/internal/logging"
)

type SimConfig struct {
	APIBaseURL string
	Requests   int
	DoctorName string
	Date       string
	Time       string
	Timeout    time.Duration
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&om.Error, 1)
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := append([]time.Duration(nil), om.Latencies...)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	n := len(latencies)
	return sum / time.Duration(n), latencies[n*50/100], latencies[min(n*95/100, n-1)], latencies[n-1]
}

func main() {
	var cfg SimConfig
	flag.StringVar(&cfg.APIBaseURL, "api", getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "api-server base URL")
	flag.IntVar(&cfg.Requests, "n", 50, "number of concurrent booking attempts")
	flag.StringVar(&cfg.DoctorName, "doctor", "Dr. Rao", "doctor to book")
	flag.StringVar(&cfg.Date, "date", time.Now().AddDate(0, 0, 1).Format("2006-01-02"), "date as YYYY-MM-DD")
	flag.StringVar(&cfg.Time, "time", "10:00", "slot as HH:MM")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "per request timeout")
	flag.Parse()

	log := logging.New(getEnv("LOG_LEVEL", "info"))
	if cfg.Requests <= 0 {
		log.Fatal("-n must be > 0")
	}

	log.WithFields(logrus.Fields{
		"requests": cfg.Requests,
		"doctor":   cfg.DoctorName,
		"date":     cfg.Date,
		"time":     cfg.Time,
	}).Info("simulator starting")

	om := run(context.Background(), cfg, &http.Client{Timeout: cfg.Timeout})
	printReport(cfg, om)

	if atomic.LoadInt64(&om.Success) != 1 {
		log.WithField("success", om.Success).Error("expected exactly one successful booking")
		os.Exit(1)
	}
}

// run releases all requests at once so they race for the same slot.
func run(ctx context.Context, cfg SimConfig, client *http.Client) *OperationMetrics {
	om := &OperationMetrics{}
	faker := gofakeit.New(0)

	bodies := make([][]byte, cfg.Requests)
	for i := range bodies {
		bodies[i], _ = json.Marshal(map[string]string{
			"doctor_name":  cfg.DoctorName,
			"patient_name": faker.Name(),
			"phone":        faker.Numerify("98########"),
			"date":         cfg.Date,
			"time":         cfg.Time,
		})
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < cfg.Requests; i++ {
		wg.Add(1)
		go func(body []byte) {
			defer wg.Done()
			<-start

			began := time.Now()
			status, err := book(ctx, client, cfg.APIBaseURL, body)
			om.Record(time.Since(began), status, err)
		}(bodies[i])
	}

	close(start)
	wg.Wait()
	return om
}

func book(ctx context.Context, client *http.Client, baseURL string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/v1/appointments", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func printReport(cfg SimConfig, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	avg, p50, p95, max := om.Stats()

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Slot: %s %s %s\n", cfg.DoctorName, cfg.Date, cfg.Time)
	fmt.Printf("Total: %d\n", total)
	fmt.Printf("  Success:   %d\n", atomic.LoadInt64(&om.Success))
	fmt.Printf("  Conflicts: %d\n", atomic.LoadInt64(&om.Conflict))
	fmt.Printf("  Errors:    %d\n", atomic.LoadInt64(&om.Error))
	fmt.Printf("Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
