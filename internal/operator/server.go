package operator

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/models"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

const qrCodeSize = 256

var tableNumber = regexp.MustCompile(`^\d{1,4}$`)

type Config struct {
	Addr           string
	Secret         string
	AllowedOrigins []string
	// BotUsername is used to build table deep links.
	BotUsername string
}

// Server is the operator HTTP API. Routes under /api need
// "Authorization: Bearer <secret>"; without a secret they are not served.
type Server struct {
	cfg    Config
	svc    *ordering.Service
	logger *zap.Logger

	webhookPath    string
	webhookHandler http.Handler
}

func New(cfg Config, svc *ordering.Service, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, svc: svc, logger: logger}
}

// MountWebhook serves Telegram webhook updates at path.
func (s *Server) MountWebhook(path string, handler http.Handler) {
	s.webhookPath = path
	s.webhookHandler = handler
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.healthCheck).Methods("GET")

	if s.webhookHandler != nil {
		r.Handle(s.webhookPath, s.webhookHandler).Methods("POST")
	}

	if s.cfg.Secret != "" {
		api := r.PathPrefix("/api").Subrouter()
		api.Use(s.authenticate)
		api.HandleFunc("/orders", s.listOrders).Methods("GET")
		api.HandleFunc("/orders/{id}", s.getOrder).Methods("GET")
		api.HandleFunc("/orders/{id}/status", s.updateStatus).Methods("PUT")
		api.HandleFunc("/categories", s.listCategories).Methods("GET")
		api.HandleFunc("/categories/{category}/items", s.addItem).Methods("POST")
		api.HandleFunc("/categories/{category}/items/{id}", s.deleteItem).Methods("DELETE")
		api.HandleFunc("/stats", s.stats).Methods("GET")
		api.HandleFunc("/tables/{table}/qrcode", s.tableQRCode).Methods("GET")
	}

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(r)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Operator API starting", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("operator server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("operator server shutdown: %w", err)
	}
	return nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Secret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "food-bot",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	var status models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseStatus(raw)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", ordering.ErrInvalidStatus, err))
			return
		}
		status = parsed
	}

	orders, err := s.svc.Orders.AllOrders(r.Context(), status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.svc.Orders.Order(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", ordering.ErrInvalidStatus, err))
		return
	}

	order, err := s.svc.Orders.SetStatus(r.Context(), mux.Vars(r)["id"], status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Catalog.Categories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req ordering.NewItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	categoryID := mux.Vars(r)["category"]
	item, err := s.svc.Catalog.AddItem(r.Context(), categoryID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Menu item added",
		zap.String("category_id", categoryID),
		zap.String("item_id", item.ID))
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.Catalog.DeleteItem(r.Context(), vars["category"], vars["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("Menu item deleted",
		zap.String("category_id", vars["category"]),
		zap.String("item_id", vars["id"]))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Orders.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// TableDeepLink is the link that opens the bot at a dine-in table.
func TableDeepLink(botUsername, table string) string {
	return fmt.Sprintf("https://t.me/%s?start=table_%s", botUsername, table)
}

func (s *Server) tableQRCode(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	if !tableNumber.MatchString(table) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "table must be 1-4 digits"})
		return
	}
	if s.cfg.BotUsername == "" {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "bot username unknown"})
		return
	}

	png, err := qrcode.Encode(TableDeepLink(s.cfg.BotUsername, table), qrcode.Medium, qrCodeSize)
	if err != nil {
		s.logger.Error("Failed to encode QR code", zap.String("table", table), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to generate QR code"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ordering.ErrOrderNotFound),
		errors.Is(err, ordering.ErrItemNotFound),
		errors.Is(err, ordering.ErrCategoryNotFound),
		errors.Is(err, ordering.ErrFavoriteNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ordering.ErrInvalidStatus),
		errors.Is(err, ordering.ErrInvalidItem),
		errors.Is(err, ordering.ErrInvalidOrderType):
		status = http.StatusBadRequest
	case errors.Is(err, ordering.ErrInvalidTransition),
		errors.Is(err, ordering.ErrDuplicateFavorite):
		status = http.StatusConflict
	case errors.Is(err, ordering.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Operator request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
