//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"lifetree-backend/infrastructure/config"
)

// InitializeContainer creates a fully wired dependency container
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
