package handlers

import (
	"maps"
	"slices"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

// Handler variants.
const (
	TypeCapture  = "capture"
	TypeCrossref = "crossref"
	TypeVideo    = "video"
)

// Factory constructs one handler variant.
type Factory func(name string, hc domain.HandlerConfig, deps Deps) (ports.Handler, error)

var factories = map[string]Factory{
	TypeCapture:  NewCapture,
	TypeCrossref: NewCrossref,
	TypeVideo:    NewVideo,
}

// Types lists the known handler variants.
func Types() []string {
	return slices.Sorted(maps.Keys(factories))
}

// Build instantiates every enabled handler of cfg in name order.
//
// A handler's variant is its "type" parameter, defaulting to its name, so one variant may be
// configured several times under different names.
func Build(cfg *domain.Config, deps Deps) ([]ports.Handler, error) {
	var out []ports.Handler

	for _, name := range slices.Sorted(maps.Keys(cfg.Handlers)) {
		hc := cfg.Handlers[name]
		if !hc.Enabled {
			continue
		}

		typ := hc.String("type", name)
		factory, ok := factories[typ]
		if !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrUnknownHandler, "no handler variant named "+typ), "handler", name)
		}

		h, err := factory(name, hc, deps)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to build handler"), "handler", name)
		}
		out = append(out, h)
	}

	if len(out) == 0 {
		return nil, domain.ErrNoHandlersEnabled
	}
	return out, nil
}
