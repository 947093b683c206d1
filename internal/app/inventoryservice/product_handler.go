package inventoryservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"git.platform.alem.school/amibragim/order-fulfillment/internal/domain/products"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/ports"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/shared/logger"
)

// ProductHTTPHandler adapts HTTP requests to the InventoryService.
type ProductHTTPHandler struct {
	svc    ports.InventoryService
	logger *logger.Logger
}

// NewProductHTTPHandler wires an HTTP handler around the InventoryService.
func NewProductHTTPHandler(svc ports.InventoryService, logger *logger.Logger) *ProductHTTPHandler {
	return &ProductHTTPHandler{svc: svc, logger: logger}
}

// Register mounts the product routes on the provided mux.
func (handler *ProductHTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", handler.handleListProducts)
	mux.HandleFunc("GET /products/{id}", handler.handleGetProduct)
	mux.HandleFunc("POST /products", handler.handleCreateProduct)
	mux.HandleFunc("PUT /products/{id}", handler.handleUpdateProduct)
	mux.HandleFunc("DELETE /products/{id}", handler.handleDeleteProduct)
}

// --- Request/Response DTOs (HTTP boundary) ---

type productRequest struct {
	Name          string `json:"name"`
	ItemsInStock  int64  `json:"items_in_stock"`
	ItemsReserved int64  `json:"items_reserved"`
}

type productResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ItemsInStock  int64  `json:"items_in_stock"`
	ItemsReserved int64  `json:"items_reserved"`
}

func toProductResponse(p *products.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		ItemsInStock:  p.ItemsInStock,
		ItemsReserved: p.ItemsReserved,
	}
}

// --- Handlers ---

func (handler *ProductHTTPHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	all, err := handler.svc.ListProducts(ctxWithTimeout)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "An error happened. Try again.", err)
		return
	}

	resp := make([]productResponse, len(all))
	for i := range all {
		resp[i] = toProductResponse(&all[i])
	}
	handler.jsonResponse(ctx, w, http.StatusOK, resp)
}

func (handler *ProductHTTPHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	id, ok := handler.pathID(ctx, w, r)
	if !ok {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	product, err := handler.svc.GetProduct(ctxWithTimeout, id)
	if errors.Is(err, ports.ErrNotFound) {
		handler.httpError(ctx, w, http.StatusNotFound, "product not found", err)
		return
	}
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "An error happened. Try again.", err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, toProductResponse(product))
}

func (handler *ProductHTTPHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	req, ok := handler.decodeProduct(ctx, w, r)
	if !ok {
		return
	}

	product := &products.Product{
		Name:          req.Name,
		ItemsInStock:  req.ItemsInStock,
		ItemsReserved: req.ItemsReserved,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := handler.svc.CreateProduct(ctxWithTimeout, product); err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	w.Header().Set("Location", "/products/"+strconv.FormatInt(product.ID, 10))
	handler.jsonResponse(ctx, w, http.StatusCreated, toProductResponse(product))
}

func (handler *ProductHTTPHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	id, ok := handler.pathID(ctx, w, r)
	if !ok {
		return
	}
	req, ok := handler.decodeProduct(ctx, w, r)
	if !ok {
		return
	}

	product := &products.Product{
		ID:            id,
		Name:          req.Name,
		ItemsInStock:  req.ItemsInStock,
		ItemsReserved: req.ItemsReserved,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := handler.svc.UpdateProduct(ctxWithTimeout, product)
	if errors.Is(err, ports.ErrNotFound) {
		handler.httpError(ctx, w, http.StatusNotFound, "product not found", err)
		return
	}
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, toProductResponse(product))
}

func (handler *ProductHTTPHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	id, ok := handler.pathID(ctx, w, r)
	if !ok {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := handler.svc.DeleteProduct(ctxWithTimeout, id); err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "An error happened. Try again.", err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusNoContent, nil)
}

// --- Helpers ---

func (handler *ProductHTTPHandler) pathID(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "product id must be an integer", err)
		return 0, false
	}
	return id, true
}

func (handler *ProductHTTPHandler) decodeProduct(ctx context.Context, w http.ResponseWriter, r *http.Request) (productRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", errors.New("unsupported content type: "+ct))
		return productRequest{}, false
	}

	var req productRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return productRequest{}, false
	}
	return req, true
}

// serviceError maps service failures: DB errors are 500, everything else is a
// validation failure.
func (handler *ProductHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		handler.httpError(ctx, w, http.StatusInternalServerError, "An error happened. Try again.", err)
		return
	}
	handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
}

// httpError sends a JSON error response with a message.
func (handler *ProductHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	switch {
	case status >= 500:
		action = "http_internal_error"
	case status == http.StatusBadRequest:
		action = "validation_failed"
	case status == http.StatusNotFound:
		action = "product_not_found"
	}
	handler.logger.Error(ctx, action, msg, err)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// jsonResponse takes any type of data and encodes it to the HTTP response.
func (handler *ProductHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

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
func (handler *ProductHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = logger.NewRequestID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
