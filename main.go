package main

import (
	"context"
	"net/http"
	"os"

	"swinglab-backend/database"
	"swinglab-backend/handlers"
	"swinglab-backend/logger"
	"swinglab-backend/services"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	/* ─── ENV ───────────────────────────────────────────────────────────── */
	_ = godotenv.Load()

	log := logger.New(os.Getenv("APP_ENV"))
	defer log.Sync()

	ctx := context.Background()

	/* database ---------------------------------------------------------------- */
	db, err := database.InitDB(os.Getenv("DATABASE_URL"), log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	/* object store ------------------------------------------------------------ */
	store, err := services.NewObjectStore(ctx, services.ObjectStoreConfig{
		Bucket:         getenvDefault("S3_VIDEO_BUCKET", "swinglab-videos"),
		Region:         getenvDefault("AWS_REGION", "us-east-1"),
		Endpoint:       os.Getenv("S3_ENDPOINT"),
		AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		SecretKey:      os.Getenv("S3_SECRET_KEY"),
		ForcePathStyle: os.Getenv("S3_FORCE_PATH_STYLE") == "true",
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize object store", zap.Error(err))
	}

	/* services ---------------------------------------------------------------- */
	coordinator := services.NewUploadCoordinator(store, db, log)
	issuer := services.NewSignedURLIssuer(store)

	/* ─── ROUTER ─────────────────────────────────────────────────────────── */
	router := mux.NewRouter()
	router.Use(handlers.MetricsMiddleware)

	videoHandler := handlers.NewVideoHandler(db, coordinator, issuer, store, log)
	handlers.SetupVideoRoutes(router, videoHandler)

	playerHandler := handlers.NewPlayerHandler(db, log)
	handlers.SetupPlayerRoutes(router, playerHandler)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	/* ─── CORS & SERVER ──────────────────────────────────────────────────── */
	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{
			"http://localhost:3000", "http://127.0.0.1:3000",
			"http://localhost:5173", // Vite
		}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Tenant-ID"}),
		gorillaHandlers.AllowCredentials(),
	)

	addr := getenvDefault("LISTEN_ADDR", ":8080")
	log.Info("Backend listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, cors(router)); err != nil {
		log.Fatal("Server exited", zap.Error(err))
	}
}

/* utility */
func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
