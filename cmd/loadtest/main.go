package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"slotbook/pkg/client"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
)

type result struct {
	status int
	code   string
	err    error
}

// summary counts outcomes of one race. It passes when exactly one request
// won and every other one was told the slot was taken.
type summary struct {
	booked   int
	claimed  int
	other    int
	failures []string
}

func (s summary) passed(total int) bool {
	return s.booked == 1 && s.claimed == total-1 && s.other == 0
}

func summarize(results []result) summary {
	var s summary
	for _, r := range results {
		switch {
		case r.err != nil:
			s.other++
			s.failures = append(s.failures, r.err.Error())
		case r.status == http.StatusCreated:
			s.booked++
		case r.status == http.StatusConflict && r.code == "ALREADY_CLAIMED":
			s.claimed++
		default:
			s.other++
			s.failures = append(s.failures, fmt.Sprintf("status=%d code=%s", r.status, r.code))
		}
	}
	return s
}

func race(ctx context.Context, api *client.SlotbookClient, slotID string, n int) []result {
	results := make([]result, n)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			resp, err := api.Book(ctx, model.ClaimRequest{
				SlotID:      slotID,
				PatientName: fmt.Sprintf("Patient %d", i),
			})
			if err != nil {
				results[i] = result{err: err}
				return
			}
			results[i] = result{status: resp.StatusCode, code: client.GetErrorCode(resp)}
		}(i)
	}
	close(start)
	wg.Wait()
	return results
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "booking service base URL")
	concurrency := flag.Int("n", 20, "concurrent booking requests")
	flag.Parse()

	log := logger.New(logger.Config{
		Level:   logger.INFO,
		Format:  logger.JSON,
		Service: "loadtest",
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	api := client.NewSlotbookClient(*baseURL)
	if err := api.WaitForHealthy(ctx, 30*time.Second); err != nil {
		log.Fatal("Service not healthy", "base_url", *baseURL, "error", err)
	}

	doctor, err := api.CreateDoctor(ctx, model.CreateDoctorRequest{Name: "Dr. House", Specialization: "Diagnostic Medicine"})
	if err != nil {
		log.Fatal("Setup failed", "error", err)
	}
	slot, err := api.CreateSlot(ctx, doctor.ID, time.Now().Add(24*time.Hour))
	if err != nil {
		log.Fatal("Setup failed", "error", err)
	}
	log.Info("Created slot", "slot_id", slot.ID, "concurrency", *concurrency)

	s := summarize(race(ctx, api, slot.ID, *concurrency))
	log.Info("Race finished",
		"requests", *concurrency,
		"booked", s.booked,
		"already_claimed", s.claimed,
		"unexpected", s.other,
		"failures", s.failures,
	)

	if !s.passed(*concurrency) {
		log.Error("Concurrency check failed: expected exactly one booking")
		os.Exit(1)
	}
	log.Info("Concurrency check passed: exactly one booking succeeded")
}
