// Package builtin wires the plugins that ship with the binary into a
// registry. Each plugin registers through an explicit factory so the
// available set is enumerable at startup.
package builtin

import (
	"github.com/sirupsen/logrus"

	"github.com/prowlsec/prowl/pkg/plugin"
	"github.com/prowlsec/prowl/pkg/plugin/builtin/contentdiscovery"
	"github.com/prowlsec/prowl/pkg/plugin/builtin/echo"
	"github.com/prowlsec/prowl/pkg/plugin/builtin/subdomainenum"
	"github.com/prowlsec/prowl/pkg/plugin/builtin/webscan"
)

// RegisterAll registers every built-in plugin. A single plugin failing to
// register is logged and skipped; it does not prevent the others from
// loading.
func RegisterAll(reg *plugin.Registry, log *logrus.Logger) {
	if log == nil {
		log = logrus.New()
	}

	factories := []plugin.Factory{
		contentdiscovery.Factory,
		echo.Factory,
		subdomainenum.Factory,
		webscan.Factory,
	}

	for _, factory := range factories {
		if err := reg.Register(factory); err != nil {
			log.WithError(err).Warn("Failed to register built-in plugin")
		}
	}
}
