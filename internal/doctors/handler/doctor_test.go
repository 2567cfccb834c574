package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"slotbook/internal/bookings/repository"
	"slotbook/internal/doctors/service"
	"slotbook/internal/doctors/validator"
	"slotbook/pkg/config"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(store repository.Store) *httprouter.Router {
	cfg := &config.Config{Log: logger.Discard()}
	svc := service.NewDoctorService(store, validator.NewDoctorValidator(cfg.Log), cfg)

	router := httprouter.New()
	NewDoctorHandler(svc, cfg.Log).RegisterRoutes(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path, body string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec.Code
}

func TestDoctorCatalogFlow(t *testing.T) {
	store := repository.NewMemoryStore()
	router := newRouter(store)

	var created struct {
		Data model.Doctor `json:"data"`
	}
	code := do(t, router, http.MethodPost, "/api/v1/admin/doctors",
		`{"name":"Dr. Sarah Smith","specialization":"Cardiology","bio":"Expert in heart health."}`, &created)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, created.Data.ID)

	var slot struct {
		Data model.Slot `json:"data"`
	}
	code = do(t, router, http.MethodPost, "/api/v1/admin/slots",
		`{"doctorId":"`+created.Data.ID+`","startTime":"2026-05-05T10:00:00Z"}`, &slot)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, model.SlotAvailable, slot.Data.Status)
	assert.True(t, slot.Data.StartTime.Equal(time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC)))

	var doctors struct {
		Data []model.DoctorSummary `json:"data"`
	}
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/v1/doctors", "", &doctors))
	require.Len(t, doctors.Data, 1)
	assert.Equal(t, 1, doctors.Data[0].AvailableSlots)

	var slots struct {
		Data []map[string]any `json:"data"`
	}
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/v1/doctors/"+created.Data.ID+"/slots", "", &slots))
	require.Len(t, slots.Data, 1)
	assert.Equal(t, "AVAILABLE", slots.Data[0]["status"])
	assert.NotContains(t, slots.Data[0], "lockedAt")
}

func TestCreateSlot_UnknownDoctorIsBadRequest(t *testing.T) {
	router := newRouter(repository.NewMemoryStore())

	code := do(t, router, http.MethodPost, "/api/v1/admin/slots",
		`{"doctorId":"0b7c2f1e-4a52-4d0f-9a43-6f1d7f0c9e11","startTime":"2026-05-05T10:00:00Z"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateDoctor_ValidationError(t *testing.T) {
	router := newRouter(repository.NewMemoryStore())

	var resp struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}
	code := do(t, router, http.MethodPost, "/api/v1/admin/doctors", `{"name":"D","specialization":"Cardiology"}`, &resp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Contains(t, resp.Details, "name")
}

func TestListDoctors_Empty(t *testing.T) {
	router := newRouter(repository.NewMemoryStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/doctors", nil).WithContext(context.Background()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}
