package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	bookinghandler "slotbook/internal/bookings/handler"
	"slotbook/internal/bookings/repository"
	bookingservice "slotbook/internal/bookings/service"
	bookingvalidator "slotbook/internal/bookings/validator"
	doctorhandler "slotbook/internal/doctors/handler"
	doctorservice "slotbook/internal/doctors/service"
	doctorvalidator "slotbook/internal/doctors/validator"
	"slotbook/pkg/client"
	"slotbook/pkg/config"
	"slotbook/pkg/contracts"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:            "0",
		RateLimitRPS:    1000,
		RateLimitBurst:  1000,
		RequestTimeout:  5 * time.Second,
		IdempotencyTTL:  time.Minute,
		MaxRequestSize:  64 * 1024,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		IdleTimeout:     time.Minute,
		ShutdownTimeout: time.Second,
		LockTTL:         2 * time.Minute,
		Log:             logger.Discard(),
		Client:          client.NewClient(),
	}
}

func startServer(t *testing.T) (*client.SlotbookClient, *client.HttpClient) {
	t.Helper()
	cfg := testConfig()
	store := repository.NewMemoryStore()

	bookings := bookingservice.NewBookingService(store, bookingvalidator.NewBookingValidator(cfg.Log), nil, cfg)
	doctors := doctorservice.NewDoctorService(store, doctorvalidator.NewDoctorValidator(cfg.Log), cfg)

	application := NewApplication(cfg)
	application.SetApp(store, []contracts.Handler{
		bookinghandler.NewBookingHandler(bookings, cfg.Log),
		doctorhandler.NewDoctorHandler(doctors, cfg.Log),
	})
	t.Cleanup(application.idempotencyStore.Stop)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)
	return client.NewSlotbookClient(server.URL), client.NewHttpClient(server.URL)
}

func seedSlot(t *testing.T, api *client.SlotbookClient) *model.Slot {
	t.Helper()
	ctx := context.Background()
	doctor, err := api.CreateDoctor(ctx, model.CreateDoctorRequest{Name: "Dr. Sarah Smith", Specialization: "Cardiology"})
	require.NoError(t, err)
	slot, err := api.CreateSlot(ctx, doctor.ID, time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return slot
}

func TestTwentyConcurrentBookingsOverHTTP(t *testing.T) {
	api, _ := startServer(t)
	slot := seedSlot(t, api)

	var wg sync.WaitGroup
	codes := make(chan int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := api.Book(context.Background(), model.ClaimRequest{
				SlotID:      slot.ID,
				PatientName: fmt.Sprintf("Patient %d", i),
			})
			if err != nil {
				t.Error(err)
				return
			}
			if resp.StatusCode == http.StatusConflict {
				assert.Equal(t, "ALREADY_CLAIMED", client.GetErrorCode(resp))
			}
			codes <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	assert.Equal(t, map[int]int{http.StatusCreated: 1, http.StatusConflict: 19}, counts)

	slots, err := api.ListSlots(context.Background(), slot.DoctorID)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, model.SlotBooked, slots[0].Status)
}

func TestHoldFlowOverHTTP(t *testing.T) {
	ctx := context.Background()
	api, _ := startServer(t)
	slot := seedSlot(t, api)

	reservation, err := api.Hold(ctx, slot.ID)
	require.NoError(t, err)

	resp, err := api.Book(ctx, model.ClaimRequest{SlotID: slot.ID, PatientName: "Someone Else"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = api.Confirm(ctx, model.ConfirmRequest{SlotID: slot.ID, HoldToken: reservation.HoldToken, PatientName: "Jane Doe"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking, err := client.DecodeClaim(resp)
	require.NoError(t, err)
	assert.Equal(t, slot.ID, booking.SlotID)

	resp, err = api.Release(ctx, slot.ID, reservation.HoldToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBookErrorsOverHTTP(t *testing.T) {
	ctx := context.Background()
	api, raw := startServer(t)

	resp, err := api.Book(ctx, model.ClaimRequest{SlotID: "0b7c2f1e-4a52-4d0f-9a43-6f1d7f0c9e11", PatientName: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", client.GetErrorCode(resp))

	resp, err = api.Book(ctx, model.ClaimRequest{SlotID: "not-a-uuid", PatientName: "J"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", client.GetErrorCode(resp))

	resp, err = raw.GET(ctx, "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = raw.GET(ctx, "/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = raw.GET(ctx, "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "slotbook_claims_total")
}

func TestIdempotentBookingReplay(t *testing.T) {
	ctx := context.Background()
	api, raw := startServer(t)
	slot := seedSlot(t, api)

	req := model.ClaimRequest{SlotID: slot.ID, PatientName: "Jane Doe"}
	headers := map[string]string{"Idempotency-Key": "retry-1"}

	first, err := raw.POSTWithHeaders(ctx, "/api/v1/book", req, headers)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, first.StatusCode)

	second, err := raw.POSTWithHeaders(ctx, "/api/v1/book", req, headers)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, string(first.Body), string(second.Body))
}
