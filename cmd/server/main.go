package main

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sowfeehealth/wellness/internal/api"
	"github.com/sowfeehealth/wellness/internal/db"
	"github.com/sowfeehealth/wellness/internal/logger"
	"github.com/sowfeehealth/wellness/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logger.Init(utils.SafeEnv("WELLNESS_LOG_LEVEL", "INFO"))

	addr := utils.SafeEnv("WELLNESS_ADDR", ":8080")
	dbPath := utils.SafeEnv("WELLNESS_DB", "wellness.db")

	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer sqlDB.Close()

	if err := db.Migrate(sqlDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	store, err := db.NewSQLiteStore(sqlDB)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}

	handler := api.NewRouter(store).Handler()
	logger.Info("Wellness API listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
