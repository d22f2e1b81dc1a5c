package ports

import "go.trai.ch/tend/internal/core/domain"

// ConfigLoader reads and validates the daemon configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration for the vault rooted at root.
	// An empty path means <root>/tend.yaml, which may be absent.
	Load(root, path string) (*domain.Config, error)
}
