package repository

import (
	"github.com/tnqbao/gau-media-offload/infra"
	"gorm.io/gorm"
)

type Repository struct {
	MediaItemRepo *MediaItemRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	repository = &Repository{
		MediaItemRepo: NewMediaItemRepository(infra.Postgres.DB),
	}
	return repository
}

func GetRepository() *Repository {
	if repository == nil {
		panic("repository not initialized")
	}
	return repository
}

func (r *Repository) BeginTransaction(db *gorm.DB) *gorm.DB {
	return db.Begin()
}

func (r *Repository) WithTransaction(tx *gorm.DB) *Repository {
	return &Repository{
		MediaItemRepo: NewMediaItemRepository(tx),
	}
}
