package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/tnqbao/gau-media-offload/config"
	"github.com/tnqbao/gau-media-offload/http/controller"
	routes "github.com/tnqbao/gau-media-offload/http/route"
	infraPkg "github.com/tnqbao/gau-media-offload/infra"
	providerPkg "github.com/tnqbao/gau-media-offload/provider"
	"github.com/tnqbao/gau-media-offload/repository"
)

func main() {
	err := godotenv.Load("staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)
	provider := providerPkg.InitProvider(cfg, infra, repo)

	ctrl := controller.NewController(cfg, infra, repo, provider)

	router := routes.SetupRouter(ctrl)

	log.Println("HTTP Server started on :8080")
	if err := router.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
