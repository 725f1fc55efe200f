package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxScrapesInFlight bounds concurrent scrapes of the ops endpoint.
const maxScrapesInFlight = 4

// Handler serves the collector's registry in the Prometheus exposition
// format, negotiating OpenMetrics when the scraper asks for it. A metric
// that fails to collect is logged and skipped instead of failing the scrape.
//
//	r.Handle(cfg.Path, collector.Handler())
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		MaxRequestsInFlight: maxScrapesInFlight,
		ErrorHandling:       promhttp.ContinueOnError,
		ErrorLog:            scrapeErrorLog{},
		Registry:            c.registry,
	})
}

// scrapeErrorLog routes promhttp errors to slog.
type scrapeErrorLog struct{}

func (scrapeErrorLog) Println(v ...any) {
	slog.Warn("metrics scrape error", "error", v)
}
