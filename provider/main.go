package provider

import (
	"github.com/tnqbao/gau-media-offload/config"
	"github.com/tnqbao/gau-media-offload/infra"
	"github.com/tnqbao/gau-media-offload/repository"
)

type Provider struct {
	OffloadService *OffloadService
}

var provider *Provider

func InitProvider(cfg *config.Config, infraClient *infra.Infra, repo *repository.Repository) *Provider {
	offloadService := NewOffloadService(cfg.EnvConfig, infraClient, repo.MediaItemRepo, infraClient.Redis)

	provider = &Provider{
		OffloadService: offloadService,
	}

	return provider
}

func GetProvider() *Provider {
	if provider == nil {
		panic("Provider not initialized")
	}
	return provider
}
