package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hopper1357/VTT/internal/session"
	"github.com/hopper1357/VTT/internal/version"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	Session *session.Coordinator
	Addr    string
}

func New(coord *session.Coordinator, addr string) *Server {
	return &Server{
		Session: coord,
		Addr:    addr,
	}
}

// Router собирает все маршруты. Отдельно от Run, чтобы тесты могли
// поднять его через httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/ws", s.handleWS)
	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	// Debug Routes
	NewDebugHandler(s.Session).RegisterRoutes(r)
	r.Mount("/debug/pprof", middleware.Profiler())

	return r
}

// Run запускает HTTP сервер и останавливает его при отмене ctx.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("🎲 VTT session server running on %s", s.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Log.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		// Разрешаем заголовки, если фронт шлет что-то нестандартное
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next.ServeHTTP(w, r)
	})
}

// requestLogger пишет запросы в общий logrus-логгер.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger.Log.WithFields(logrus.Fields{
			"component":  "http",
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

// handleWS обрабатывает подключение по WebSocket: /ws?username=<name>&role=GM|PLAYER
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Error("Upgrade error")
		return
	}

	join := session.JoinRequest{
		Username: r.URL.Query().Get("username"),
		Role:     r.URL.Query().Get("role"),
	}
	client := NewClient(s.Session, conn)
	if !client.join(r.Context(), join) {
		return
	}

	// Запускаем пампы
	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(version.Info())
}
