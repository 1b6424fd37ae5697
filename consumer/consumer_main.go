package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-media-offload/config"
	"github.com/tnqbao/gau-media-offload/consumer/worker"
	infraPkg "github.com/tnqbao/gau-media-offload/infra"
	providerPkg "github.com/tnqbao/gau-media-offload/provider"
	"github.com/tnqbao/gau-media-offload/repository"
)

func main() {
	err := godotenv.Load("../staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)
	provider := providerPkg.InitProvider(cfg, infra, repo)

	// Initialize context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	offloadConsumer := worker.NewOffloadConsumer(infra.RabbitMQ.Channel, infra, repo, provider)
	if err := offloadConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start Offload consumer: %v", err)
		log.Fatalf("Failed to start Offload consumer: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel() // Cancel context to stop consumers

	infra.Logger.InfoWithContextf(ctx, "Consumer exited properly")

	infra.Telemetry.Shutdown(context.Background())
	_ = infra.Logger.Shutdown(context.Background())
}
