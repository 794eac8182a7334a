// The cleanup job reconciles the object store against the metadata
// store: orphaned rendition prefixes are removed and soft-deleted videos
// past their retention window are reaped. One-shot process, driven by a
// scheduler.
//
// Exit codes: 0 success or dry-run, 1 completed with errors or fatal,
// 2 safety-gate abort (production run without an explicit dry-run value).
package main

import (
	"context"
	"os"
	"strconv"

	"swinglab-backend/database"
	"swinglab-backend/logger"
	"swinglab-backend/services"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	exitOK         = 0
	exitErrors     = 1
	exitSafetyGate = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	environment := getenvDefault("APP_ENV", "development")
	log := logger.New(environment)
	defer log.Sync()

	// Safety gate first: no discovery happens on a misconfigured
	// production run.
	raw, set := os.LookupEnv("CLEANUP_DRY_RUN")
	dryRun, err := services.ResolveDryRun(environment, raw, set)
	if err != nil {
		log.Error("Cleanup aborted by safety gate",
			zap.String("environment", environment), zap.Error(err))
		return exitSafetyGate
	}

	retentionDays := services.DefaultRetentionDays
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			log.Error("Invalid RETENTION_DAYS", zap.String("value", v))
			return exitErrors
		}
		retentionDays = parsed
	}

	cfg := services.CleanupConfig{
		Environment:   environment,
		DryRun:        dryRun,
		RetentionDays: retentionDays,
		ScanLimit:     services.DefaultScanLimit,
	}

	ctx := context.Background()

	db, err := database.InitDB(os.Getenv("DATABASE_URL"), log)
	if err != nil {
		log.Error("Failed to initialize database", zap.Error(err))
		return exitErrors
	}
	defer db.Close()

	store, err := services.NewObjectStore(ctx, services.ObjectStoreConfig{
		Bucket:         getenvDefault("S3_VIDEO_BUCKET", "swinglab-videos"),
		Region:         getenvDefault("AWS_REGION", "us-east-1"),
		Endpoint:       os.Getenv("S3_ENDPOINT"),
		AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		SecretKey:      os.Getenv("S3_SECRET_KEY"),
		ForcePathStyle: os.Getenv("S3_FORCE_PATH_STYLE") == "true",
	}, log)
	if err != nil {
		log.Error("Failed to initialize object store", zap.Error(err))
		return exitErrors
	}

	runner := services.NewCleanupRunner(cfg, store, db, log)
	stats, err := runner.Run(ctx)
	if err != nil {
		log.Error("Cleanup run failed", zap.Error(err))
		return exitErrors
	}
	if len(stats.Errors) > 0 {
		return exitErrors
	}
	return exitOK
}

func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
