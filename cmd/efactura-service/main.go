package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/facturis/efactura-service/internal/app/background"
	"github.com/facturis/efactura-service/internal/app/setup"
	delivery "github.com/facturis/efactura-service/internal/delivery/http"
	transactionhandler "github.com/facturis/efactura-service/internal/delivery/http/transaction"
	"github.com/facturis/efactura-service/internal/infrastructure/migrate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	deps, err := setup.InitializeDependencies()
	if err != nil {
		log.Fatalf("failed to initialize dependencies: %v", err)
	}

	if err := migrate.RunMigrations(deps.DB, deps.Config.TransactionDB.MigrationsPath); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()

	// Submission worker
	go deps.TransactionUsecase.StartWorker(ctx)

	// Retry scheduler
	tasks := background.NewBackgroundTasks(deps.TransactionUsecase, deps.Config.Scheduler)
	tasks.StartAll(ctx)

	transactionsV1 := transactionhandler.NewHandler(deps.TransactionUsecase)
	router := delivery.New(transactionsV1)

	addr := fmt.Sprintf("%s:%s", deps.Config.HTTPServer.Host, deps.Config.HTTPServer.Port)
	log.Printf("HTTP server started on %s\n", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("failed to serve: %v\n", err)
	}
}
