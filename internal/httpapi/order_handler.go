package httpapi

import (
	"net/http"
	"strings"

	"dishdash-be/internal/order"
	"dishdash-be/internal/utils"

	"github.com/gorilla/mux"
)

const idempotencyHeader = "Idempotency-Key"

type statusRequest struct {
	Status order.Status `json:"status"`
}

func (h *handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in order.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.IdempotencyKey = strings.TrimSpace(r.Header.Get(idempotencyHeader))

	p, _ := utils.PrincipalFrom(r.Context())
	o, err := h.orders.Create(r.Context(), p, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, o)
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := utils.PrincipalFrom(r.Context())
	orders, err := h.orders.List(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (h *handler) orderStats(w http.ResponseWriter, r *http.Request) {
	p, _ := utils.PrincipalFrom(r.Context())
	stats, err := h.orders.Statistics(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := utils.PrincipalFrom(r.Context())
	o, err := h.orders.Get(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	p, _ := utils.PrincipalFrom(r.Context())
	o, err := h.orders.UpdateStatus(r.Context(), p, mux.Vars(r)["id"], in.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := utils.PrincipalFrom(r.Context())
	o, err := h.orders.Cancel(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}
