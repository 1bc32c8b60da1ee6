package main

import (
	"errors"
	"net/http"
	"time"

	trackd "github.com/foodontracks/trackd"
	"github.com/foodontracks/trackd/middleware"
	"github.com/foodontracks/trackd/rbac"
	"github.com/foodontracks/trackd/store/sqlite"
)

type orderResponse struct {
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Restaurant string    `json:"restaurant"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type traceEventResponse struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	Stage      string    `json:"stage"`
	Location   string    `json:"location,omitempty"`
	Actor      string    `json:"actor"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toOrderResponse(order sqlite.Order) orderResponse {
	return orderResponse{
		OrderID:    order.OrderID,
		CustomerID: order.CustomerID,
		Restaurant: order.Restaurant,
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
}

func toTraceResponse(events []sqlite.TraceEvent) []traceEventResponse {
	out := make([]traceEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, traceEventResponse{
			EventID:    event.EventID,
			OrderID:    event.OrderID,
			Stage:      event.Stage,
			Location:   event.Location,
			Actor:      event.Actor,
			RecordedAt: event.RecordedAt,
		})
	}
	return out
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, sqlite.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad request")
	case errors.Is(err, sqlite.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// canManageOrders reports whether the caller sees orders beyond their
// own. Customers only hold orders.view/orders.create; staff additionally
// hold orders.edit.
func (s *server) canManageOrders(res *trackd.AuthResult) bool {
	return s.engine.HasPermission(res, rbac.ResourceOrders, rbac.ActionEdit)
}

func (s *server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	customerFilter := ""
	if !s.canManageOrders(res) {
		customerFilter = res.UserID
	}

	orders, err := s.store.ListOrders(r.Context(), customerFilter, 100)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !s.engine.HasPermission(res, rbac.ResourceOrders, rbac.ActionCreate) {
		s.engine.RecordPermissionDenied(r.Context(), res, rbac.ResourceOrders, rbac.ActionCreate)
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var body struct {
		Restaurant string `json:"restaurant"`
		CustomerID string `json:"customer_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	// Staff may place orders on behalf of a customer; everyone else
	// orders for themselves.
	customerID := res.UserID
	if body.CustomerID != "" && s.canManageOrders(res) {
		customerID = body.CustomerID
	}

	order, err := s.store.CreateOrder(r.Context(), customerID, body.Restaurant, res.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.engine.RecordOrderCreated(r.Context(), res, order.OrderID)
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (s *server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	order, err := s.store.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if order.CustomerID != res.UserID && !s.canManageOrders(res) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *server) handleAdvanceOrder(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		Status   string `json:"status"`
		Location string `json:"location"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	orderID := r.PathValue("id")
	next := sqlite.OrderStatus(body.Status)

	// Customers may only cancel their own orders; every other
	// transition needs orders.edit.
	if !s.canManageOrders(res) {
		if next != sqlite.OrderCancelled {
			s.engine.RecordPermissionDenied(r.Context(), res, rbac.ResourceOrders, rbac.ActionEdit)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		order, err := s.store.GetOrder(r.Context(), orderID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if order.CustomerID != res.UserID {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
	}

	order, err := s.store.AdvanceOrderStatus(r.Context(), orderID, next, res.UserID, body.Location)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.engine.RecordOrderUpdated(r.Context(), res, order.OrderID, string(order.Status))
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !s.engine.HasPermission(res, rbac.ResourceShipments, rbac.ActionView) {
		s.engine.RecordPermissionDenied(r.Context(), res, rbac.ResourceShipments, rbac.ActionView)
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	orderID := r.PathValue("id")
	order, err := s.store.GetOrder(r.Context(), orderID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if order.CustomerID != res.UserID && !s.canManageOrders(res) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	events, err := s.store.TraceChain(r.Context(), orderID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTraceResponse(events))
}

func (s *server) handleAppendTrace(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !s.engine.HasPermission(res, rbac.ResourceShipments, rbac.ActionEdit) {
		s.engine.RecordPermissionDenied(r.Context(), res, rbac.ResourceShipments, rbac.ActionEdit)
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var body struct {
		Stage    string `json:"stage"`
		Location string `json:"location"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	event, err := s.store.AppendTraceEvent(r.Context(), r.PathValue("id"), body.Stage, body.Location, res.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.engine.RecordTraceEvent(r.Context(), res, event.OrderID, event.Stage)
	writeJSON(w, http.StatusCreated, traceEventResponse{
		EventID:    event.EventID,
		OrderID:    event.OrderID,
		Stage:      event.Stage,
		Location:   event.Location,
		Actor:      event.Actor,
		RecordedAt: event.RecordedAt,
	})
}
