// Package metrics exposes the simulation's runtime counters through
// rcrowley/go-metrics' registry, the same collector family the teacher
// wires every subsystem into, plus an optional Prometheus HTTP
// exporter for external observability pipelines. The observability
// record itself (spec.md section 6) stays in-process and is produced
// by world.Recorder; this package is additive telemetry a live run can
// expose while it is still executing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/blocksim/blocksim/log"
)

var logger = log.NewModuleLogger(log.ModuleMetrics)

// Registry is the process-wide go-metrics registry every counter and
// gauge below is registered against, mirroring the teacher's use of a
// single shared metrics.DefaultRegistry-style collector.
var Registry = gometrics.NewRegistry()

// ForksCounter returns the `forks_{address}` counter (spec.md section
// 6), created on first use.
func ForksCounter(address string) gometrics.Counter {
	return gometrics.GetOrRegisterCounter("forks_"+address, Registry)
}

// BlocksBuiltCounter returns the per-address count of blocks a miner
// has produced, a supplement to spec.md section 6's named fields
// (spec.md section 9 supplemented feature 3).
func BlocksBuiltCounter(address string) gometrics.Counter {
	return gometrics.GetOrRegisterCounter("blocks_built_"+address, Registry)
}

// QueueDepthGauge returns the live
// `{address}_number_of_transactions_queue` gauge (spec.md section 6),
// updated on every mempool Put.
func QueueDepthGauge(address string) gometrics.Gauge {
	return gometrics.GetOrRegisterGauge(address+"_number_of_transactions_queue", Registry)
}

// Reset drops every registered metric, used between simulation runs in
// the same process (e.g. a test suite building multiple worlds) so
// counters from a previous run don't leak into the next one's
// exporter output.
func Reset() {
	Registry.UnregisterAll()
}

// collector bridges the go-metrics registry into a Prometheus
// collector, snapshotting every registered metric at scrape time.
// Grounded on the teacher's prometheus exporter wiring in
// cmd/kcn/main.go (metrics.EnabledPrometheusExport / NewPrometheusProvider);
// reimplemented directly against client_golang here since the
// teacher's own bridge package is internal to klaytn and was not
// retrieved into the pack.
type collector struct{}

func (collector) Describe(chan<- *prometheus.Desc) {}

func (collector) Collect(ch chan<- prometheus.Metric) {
	Registry.Each(func(name string, metric interface{}) {
		desc := prometheus.NewDesc(sanitize(name), name, nil, nil)
		switch m := metric.(type) {
		case gometrics.Counter:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(m.Count()))
		case gometrics.Gauge:
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(m.Value()))
		}
	})
}

func sanitize(name string) string {
	out := make([]rune, len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out[i] = r
		default:
			out[i] = '_'
		}
	}
	return "blocksim_" + string(out)
}

// ServeExporter registers the bridged collector and blocks serving a
// Prometheus scrape endpoint at addr (e.g. ":9090"). Callers that want
// a non-blocking exporter should invoke it in its own goroutine, the
// way cmd/kcn/main.go backgrounds its own prometheus listener.
func ServeExporter(addr string) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector{}); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Infow("starting prometheus exporter", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
