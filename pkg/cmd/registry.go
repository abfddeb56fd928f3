package cmd

import (
	"log/slog"

	"github.com/thomasdavis/generous/pkg/tools"
	"github.com/thomasdavis/generous/pkg/tools/httprequest"
	logtool "github.com/thomasdavis/generous/pkg/tools/log"
	"github.com/thomasdavis/generous/pkg/tools/transform"
)

// NewRegistry builds the tool registry with the builtin tools registered.
// executorURL, when set, enables external ("@"-namespaced) tools through an
// HTTP remote.
func NewRegistry(logger *slog.Logger, executorURL string) *tools.Registry {
	var remote tools.Remote
	if executorURL != "" {
		remote = tools.NewHTTPRemote(executorURL)
	}

	registry := tools.NewRegistry(logger, remote)

	registry.Register(logtool.GetDescriptor(logger))
	registry.Register(transform.GetDescriptor(logger))
	registry.Register(httprequest.GetDescriptor(logger))

	return registry
}
