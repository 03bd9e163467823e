package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/handlers"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	attendanceHandler := handlers.NewAttendanceHandler(service)
	adminHandler := handlers.NewAdminHandler(service)

	http.HandleFunc("POST /api/v1/attendance/verify", attendanceHandler.HandleVerify)

	http.HandleFunc("POST /api/v1/admin/tokens/{day}", adminHandler.HandleIssueToken)
	http.HandleFunc("GET /api/v1/admin/tokens/{day}", adminHandler.HandleGetToken)
	http.HandleFunc("GET /api/v1/admin/attendance", adminHandler.HandleStats)
	http.HandleFunc("GET /api/v1/admin/attendance/register", adminHandler.HandleRegister)
	http.HandleFunc("PUT /api/v1/admin/overrides", adminHandler.HandleSetOverride)
	http.HandleFunc("GET /api/v1/admin/overrides", adminHandler.HandleListOverrides)
	http.HandleFunc("PUT /api/v1/admin/holidays", adminHandler.HandleAddHoliday)
	http.HandleFunc("DELETE /api/v1/admin/holidays/{day}", adminHandler.HandleRemoveHoliday)
	http.HandleFunc("GET /api/v1/admin/holidays", adminHandler.HandleListHolidays)

	http.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "ok", "store": "ok", "tokens": "ok"}
		code := http.StatusOK
		if _, err := service.Store.ListHolidays(); err != nil {
			health["status"], health["store"] = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
		today := time.Now().UTC().Format("2006-01-02")
		if _, err := service.Tokens.Get(r.Context(), today); err != nil {
			health["status"], health["tokens"] = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(health)
	})

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting kardemumma server on %s", service.Config.Server.Port)
	logger.Debug.Printf(
		"Geofence anchor (%f, %f) radius %.0fm",
		service.Config.Geofence.Latitude,
		service.Config.Geofence.Longitude,
		service.Config.Geofence.RadiusM,
	)

	srv := &http.Server{Addr: service.Config.Server.Port}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error.Fatalf("Kardemumma server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error.Printf("Server forced shutdown: %v", err)
	}
}
