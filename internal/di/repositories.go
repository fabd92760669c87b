// Package di provides dependency injection for repositories.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/modules/catalog"
	"github.com/cryptofolio/cryptofolio/internal/modules/ledger"
)

// InitializeRepositories creates all repositories
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.LedgerRepo = ledger.NewRepository(container.LedgerDB.Conn(), log)
	container.CatalogRepo = catalog.NewRepository(container.CatalogDB.Conn(), log)

	log.Info().Msg("All repositories initialized")

	return nil
}
