package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	if h.events != nil {
		r.Handle("/ws", h.events)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/actions", func(r chi.Router) {
			r.Post("/scan_images", h.HandleScanImages)
			r.Post("/get_all_images", h.HandleGetAllImages)
			r.Post("/process_single_image", h.HandleProcessSingleImage)
			r.Post("/test_azure_connection", h.HandleTestConnection)
		})

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", h.HandleStartBatch)
			r.Get("/current", h.HandleBatchStatus)
			r.Post("/current/cancel", h.HandleCancelBatch)
		})

		r.Get("/settings", h.HandleGetSettings)
		r.Put("/settings", h.HandleUpdateSettings)

		r.Post("/images", h.HandleRegisterImage)
	})

	return r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
