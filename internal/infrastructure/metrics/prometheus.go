// Package metrics expone contadores del motor de movimientos en formato Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
)

var _ inventory.Metrics = (*Prometheus)(nil)

// Prometheus implementa inventory.Metrics con un registro propio (no el global).
type Prometheus struct {
	registry  *prometheus.Registry
	proposals *prometheus.CounterVec
	confirms  *prometheus.CounterVec
}

// New registra los contadores y los collectors estándar de Go y proceso.
func New(namespace string) *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kardex",
			Name:      "proposals_total",
			Help:      "Propuestas de movimiento evaluadas, por tipo y resultado.",
		}, []string{"kind", "outcome"}),
		confirms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kardex",
			Name:      "confirmations_total",
			Help:      "Confirmaciones de movimiento, por tipo y resultado.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(
		p.proposals,
		p.confirms,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) ProposalEvaluated(kind entity.MovementKind, outcome string) {
	p.proposals.WithLabelValues(string(kind), outcome).Inc()
}

func (p *Prometheus) ConfirmEvaluated(kind entity.MovementKind, outcome string) {
	p.confirms.WithLabelValues(string(kind), outcome).Inc()
}

// Handler sirve /metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry expone el registro (tests, collectors adicionales).
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }
