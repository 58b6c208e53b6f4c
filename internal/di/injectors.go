//go:build wireinject
// +build wireinject

package di

import (
	"context"

	wire "github.com/google/wire"

	"github.com/Clark-Hu/film-favourites/internal/config"
)

func InitApp(ctx context.Context, cfg config.Config) (*App, func(), error) {
	wire.Build(
		InfraSet,
		DomainSet,
	)

	return nil, nil, nil
}
