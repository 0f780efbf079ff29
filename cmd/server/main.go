package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/alfaref/referral_backend/config"
	"github.com/alfaref/referral_backend/db"
	"github.com/alfaref/referral_backend/internal/routes"
)

func main() {
	cfg := config.NewConfig()
	database := db.InitDB(cfg.DatabaseDSN)
	defer database.Close()

	router := routes.Setup(cfg, database)

	serverAddress := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("🚀 Server starting on %s", serverAddress)
	log.Fatal(http.ListenAndServe(serverAddress, router))
}
