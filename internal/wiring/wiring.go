// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/tend/internal/adapters/config"
	_ "go.trai.ch/tend/internal/adapters/daemon"
	_ "go.trai.ch/tend/internal/adapters/logger"
	_ "go.trai.ch/tend/internal/adapters/telemetry"
	_ "go.trai.ch/tend/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/tend/internal/app"
)
