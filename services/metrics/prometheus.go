package metricsvc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
)

// FollowUpObserver exports follow-up computations as Prometheus metrics.
type FollowUpObserver struct {
	computations *prometheus.CounterVec
	people       *prometheus.GaugeVec
	groups       *prometheus.GaugeVec
	duration     *prometheus.HistogramVec
}

var _ followup.Observer = (*FollowUpObserver)(nil)

// NewFollowUpObserver creates the follow-up metrics and registers them with reg.
func NewFollowUpObserver(reg prometheus.Registerer, namespace string) (*FollowUpObserver, error) {
	obs := &FollowUpObserver{
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "followup",
			Name:      "computations_total",
			Help:      "Number of follow-up lists computed.",
		}, []string{"population"}),
		people: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "followup",
			Name:      "people",
			Help:      "People needing follow-up in the last computed list.",
		}, []string{"population"}),
		groups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "followup",
			Name:      "groups",
			Help:      "Distinct consecutive-absence groups in the last computed list.",
		}, []string{"population"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "followup",
			Name:      "computation_duration_seconds",
			Help:      "Time taken to compute a follow-up list.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"population"}),
	}
	for _, c := range []prometheus.Collector{obs.computations, obs.people, obs.groups, obs.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return obs, nil
}

func (obs *FollowUpObserver) ObserveFollowUp(t person.Type, report followup.Report, took time.Duration) {
	population := t.Plural()
	obs.computations.WithLabelValues(population).Inc()
	obs.people.WithLabelValues(population).Set(float64(report.Summary.Total))
	obs.groups.WithLabelValues(population).Set(float64(report.Summary.GroupsCount))
	obs.duration.WithLabelValues(population).Observe(took.Seconds())
}
