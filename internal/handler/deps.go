package handler

import (
	"retroim/internal/app/im"
	"retroim/internal/app/storage"
	"retroim/internal/app/store"
	"retroim/internal/configs"
)

// AppDeps bundles the shared dependencies injected into every handler.
type AppDeps struct {
	Hub            *im.Hub
	DB             *store.PG
	StorageService storage.StorageService
	Config         *configs.AppConfig
}
