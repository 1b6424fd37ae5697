package controller

import (
	"github.com/tnqbao/gau-media-offload/config"
	"github.com/tnqbao/gau-media-offload/infra"
	providerPkg "github.com/tnqbao/gau-media-offload/provider"
	"github.com/tnqbao/gau-media-offload/repository"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Provider   *providerPkg.Provider
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository, provider *providerPkg.Provider) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}
	if provider == nil {
		panic("Failed to initialize Provider")
	}
	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		Provider:   provider,
	}
}
