package stats

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// promExporter mirrors each Add as a Prometheus gauge labeled by item id,
// one GaugeVec per stat id so every distinct stat gets its own metric
// name/help text (SPEC_FULL.md domain-stack commitment: client_golang
// exports the tracker's counters alongside the in-memory buffers). Each
// Tracker owns a private registry rather than registering against the
// global default one, so multiple Trackers (e.g. one per test) never
// collide on metric names.
type promExporter struct {
	registry *prometheus.Registry
	gauges   [int(numStatIDs)]*prometheus.GaugeVec
}

func newPromExporter(namespace string) *promExporter {
	p := &promExporter{registry: prometheus.NewRegistry()}
	for i := StatID(0); i < numStatIDs; i++ {
		p.gauges[i] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      i.String(),
			Help:      "dedos runtime statistic: " + i.String(),
		}, []string{"item_id"})
		p.registry.MustRegister(p.gauges[i])
	}
	return p
}

func (p *promExporter) observe(statID StatID, itemID uint32, value float64) {
	if int(statID) < 0 || int(statID) >= len(p.gauges) {
		return
	}
	p.gauges[statID].WithLabelValues(strconv.FormatUint(uint64(itemID), 10)).Set(value)
}
