package handler

import (
	"net/http"

	"slotbook/internal/bookings/service"
	"slotbook/pkg/client"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ClaimRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Book", err)
		return
	}

	booking, err := h.service.Claim(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusCreated, model.ClaimResponse{Success: true, Booking: booking}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Book", "operation", "WriteJSON", "error", err)
	}
}

func (h *BookingHandler) Hold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reservation, err := h.service.Reserve(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Hold", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Hold", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	booking, err := h.service.Confirm(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusCreated, model.ClaimResponse{Success: true, Booking: booking}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Confirm", "operation", "WriteJSON", "error", err)
	}
}

func (h *BookingHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Release(r.Context(), ps.ByName("id"), r.Header.Get(client.HoldTokenHeader)); err != nil {
		h.writeError(w, "Release", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetBooking(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/book", h.Book)
	router.POST("/api/v1/book/confirm", h.Confirm)
	router.POST("/api/v1/slots/:id/hold", h.Hold)
	router.DELETE("/api/v1/slots/:id/hold", h.Release)
	router.GET("/api/v1/bookings/:id", h.GetByID)
}
