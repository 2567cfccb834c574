package handler

import (
	"net/http"

	"slotbook/internal/doctors/service"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type DoctorHandler struct {
	service service.DoctorService
	log     *logger.Logger
}

func NewDoctorHandler(service service.DoctorService, log *logger.Logger) *DoctorHandler {
	return &DoctorHandler{
		service: service,
		log:     log,
	}
}

func (h *DoctorHandler) CreateDoctor(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateDoctorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateDoctor", err)
		return
	}

	doctor, err := h.service.CreateDoctor(r.Context(), &req)
	if err != nil {
		h.writeError(w, "CreateDoctor", err)
		return
	}

	if err := httputil.WriteCreated(w, doctor); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateDoctor", "operation", "WriteCreated", "error", err)
	}
}

func (h *DoctorHandler) CreateSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateSlotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateSlot", err)
		return
	}

	slot, err := h.service.CreateSlot(r.Context(), &req)
	if err != nil {
		h.writeError(w, "CreateSlot", err)
		return
	}

	if err := httputil.WriteCreated(w, slot); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateSlot", "operation", "WriteCreated", "error", err)
	}
}

func (h *DoctorHandler) ListDoctors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	doctors, err := h.service.ListDoctors(r.Context())
	if err != nil {
		h.writeError(w, "ListDoctors", err)
		return
	}

	if err := httputil.WriteSuccess(w, doctors); err != nil {
		h.log.Error("failed to write success response", "handler", "ListDoctors", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DoctorHandler) ListSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slots, err := h.service.ListSlots(r.Context(), ps.ByName("doctorId"))
	if err != nil {
		h.writeError(w, "ListSlots", err)
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "ListSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DoctorHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *DoctorHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/admin/doctors", h.CreateDoctor)
	router.POST("/api/v1/admin/slots", h.CreateSlot)
	router.GET("/api/v1/doctors", h.ListDoctors)
	router.GET("/api/v1/doctors/:doctorId/slots", h.ListSlots)
}
