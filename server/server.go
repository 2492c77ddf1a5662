package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/stepshopapp/stepshop/internal/config"
	"github.com/stepshopapp/stepshop/internal/handlers"
	uiassets "github.com/stepshopapp/stepshop/ui/assets"
	"github.com/stepshopapp/stepshop/ui/views"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.Use(h.MetricsContext)

	r.HandleFunc("/", h.Root).Methods("GET").Name("root")
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// 404 handler - must be last
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		if err := views.NotFoundPage().Render(r.Context(), w); err != nil {
			http.Error(w, "Not Found", http.StatusNotFound)
		}
	})

	// Static assets - must be before the checkout router
	r.PathPrefix("/assets/").Handler(http.StripPrefix("/assets/", http.FileServer(http.FS(uiassets.FS)))).Name("assets")

	checkoutRouter := r.PathPrefix("/checkout").Subrouter()
	checkoutRouter.Use(h.RequireSameOrigin)
	checkoutRouter.HandleFunc("", h.CheckoutPage).Methods("GET").Name("checkout.page")
	checkoutRouter.HandleFunc("/customer", h.CustomerStep).Methods("POST").Name("checkout.customer")
	checkoutRouter.HandleFunc("/shipping", h.ShippingStep).Methods("POST").Name("checkout.shipping")
	checkoutRouter.HandleFunc("/payment", h.PaymentStep).Methods("POST").Name("checkout.payment")
	checkoutRouter.HandleFunc("/account", h.CreateAccount).Methods("POST").Name("checkout.account")
	checkoutRouter.HandleFunc("/step", h.Navigate).Methods("POST").Name("checkout.step")
	checkoutRouter.HandleFunc("/submit", h.SubmitOrder).Methods("POST").Name("checkout.submit")
	checkoutRouter.HandleFunc("/reset", h.ResetCheckout).Methods("POST").Name("checkout.reset")
	checkoutRouter.HandleFunc("/{checkoutID}", h.RecoverCheckout).Methods("GET").Name("checkout.recover")

	r.HandleFunc("/order/{orderID}", h.OrderConfirmation).Methods("GET").Name("order.confirmation")

	return r
}
