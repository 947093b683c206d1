package orderservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/orders"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
)

// OrderHTTPHandler adapts HTTP requests to the OrderService.
type OrderHTTPHandler struct {
	svc    ports.OrderService
	logger *logger.Logger
}

// NewOrderHTTPHandler wires an HTTP handler around the OrderService.
func NewOrderHTTPHandler(svc ports.OrderService, logger *logger.Logger) *OrderHTTPHandler {
	return &OrderHTTPHandler{svc: svc, logger: logger}
}

// Register mounts the order routes on the provided mux.
func (handler *OrderHTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /orders", handler.handleListOrders)
	mux.HandleFunc("GET /orders/{id}", handler.handleGetOrder)
	mux.HandleFunc("POST /orders", handler.handleCreateOrder)

	// lifecycle extension points, not implemented yet
	mux.HandleFunc("PUT /orders/{id}/cancel", handler.handleNotImplemented)
	mux.HandleFunc("PUT /orders/{id}/ship", handler.handleNotImplemented)
	mux.HandleFunc("PUT /orders/{id}/pay", handler.handleNotImplemented)
}

// --- Request/Response DTOs (HTTP boundary) ---

type createOrderRequest struct {
	CustomerID *int64                   `json:"customer_id,omitempty"`
	OrderLines []createOrderLineRequest `json:"order_lines"`
}

type createOrderLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type orderLineResponse struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type orderResponse struct {
	ID         int64               `json:"id"`
	CustomerID *int64              `json:"customer_id"`
	Status     string              `json:"status"`
	OrderLines []orderLineResponse `json:"order_lines"`
}

func toOrderResponse(order *orders.Order) orderResponse {
	resp := orderResponse{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		OrderLines: make([]orderLineResponse, len(order.Lines)),
	}
	for i, line := range order.Lines {
		resp.OrderLines[i] = orderLineResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		}
	}
	return resp
}

// --- Handlers ---

func (handler *OrderHTTPHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	// check the size of the request body
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", errors.New("unsupported content type: "+ct))
		return
	}

	// decode strictly
	var req createOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	cmd := ports.CreateOrderCommand{CustomerID: req.CustomerID}
	cmd.Lines = make([]ports.LineInput, len(req.OrderLines))
	for i, line := range req.OrderLines {
		cmd.Lines[i] = ports.LineInput{ProductID: line.ProductID, Quantity: line.Quantity}
	}

	handler.logger.Debug(ctx, "order_received", "new order request received", map[string]any{
		"lines_count": len(cmd.Lines),
	})

	order, err := handler.svc.PlaceOrder(ctx, cmd)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderRejected):
			handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
		case errors.Is(err, ErrSagaTimeout):
			handler.httpError(ctx, w, http.StatusInternalServerError, "An error happened. Try again.", err)
		case isServerError(err):
			handler.httpError(ctx, w, http.StatusInternalServerError, "An error happened. Try again.", err)
		default:
			handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		}
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/orders/%d", order.ID))
	handler.jsonResponse(ctx, w, http.StatusCreated, toOrderResponse(order))
}

func (handler *OrderHTTPHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "order id must be an integer", err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	order, err := handler.svc.GetOrder(ctxWithTimeout, id)
	if errors.Is(err, ports.ErrNotFound) {
		handler.httpError(ctx, w, http.StatusNotFound, "order not found", err)
		return
	}
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "An error happened. Try again.", err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, toOrderResponse(order))
}

func (handler *OrderHTTPHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	all, err := handler.svc.ListOrders(ctxWithTimeout)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "An error happened. Try again.", err)
		return
	}

	resp := make([]orderResponse, len(all))
	for i := range all {
		resp[i] = toOrderResponse(&all[i])
	}
	handler.jsonResponse(ctx, w, http.StatusOK, resp)
}

func (handler *OrderHTTPHandler) handleNotImplemented(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	handler.httpError(ctx, w, http.StatusNotImplemented, "not implemented", errors.New("lifecycle action not implemented"))
}

// --- Helpers ---

// isServerError distinguishes infrastructure failures from validation errors.
func isServerError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) || errors.Is(err, ErrPublishFailed)
}

// httpError sends a JSON error response with a message.
func (handler *OrderHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	switch {
	case status >= 500:
		action = "http_internal_error"
	case status == http.StatusBadRequest:
		action = "validation_failed"
	case status == http.StatusConflict:
		action = "order_rejected"
	case status == http.StatusNotFound:
		action = "order_not_found"
	}
	handler.logger.Error(ctx, action, msg, err)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// jsonResponse takes any type of data and encodes it to the HTTP response.
func (handler *OrderHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "failed to encode response", err)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *OrderHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = logger.NewRequestID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
