package scheduler

import (
	"github.com/key4hep/avalanche-go/algstate"
	"github.com/prometheus/client_golang/prometheus"
)

// schedulerCollector implements prometheus.Collector by reading the
// scheduler's own atomic counters, which the activation goroutine
// refreshes after each precedence pass on a top-level slot and when an
// event is signed off. It never reads EventSlot/
// AlgStateSet fields directly, since those are only safe to read from the
// activation goroutine itself.
type schedulerCollector struct {
	sched *Scheduler

	algStateDesc   *prometheus.Desc
	queueDepthDesc *prometheus.Desc
	freeSlotsDesc  *prometheus.Desc
	stallsDesc     *prometheus.Desc
	finishedDesc   *prometheus.Desc
}

func newSchedulerCollector(s *Scheduler) *schedulerCollector {
	return &schedulerCollector{
		sched: s,
		algStateDesc: prometheus.NewDesc(
			"avalanche_scheduler_algorithm_state_count",
			"Number of algorithm instances currently in each execution state, summed across slots.",
			[]string{"state"}, nil,
		),
		queueDepthDesc: prometheus.NewDesc(
			"avalanche_scheduler_queue_depth",
			"Number of tasks currently queued, per priority queue.",
			[]string{"queue"}, nil,
		),
		freeSlotsDesc: prometheus.NewDesc(
			"avalanche_scheduler_free_slots",
			"Number of event slots not currently occupied.",
			nil, nil,
		),
		stallsDesc: prometheus.NewDesc(
			"avalanche_scheduler_stalls_total",
			"Total number of detected stalls.",
			nil, nil,
		),
		finishedDesc: prometheus.NewDesc(
			"avalanche_scheduler_finished_events_total",
			"Total number of events that reached signoff, labeled by outcome.",
			[]string{"outcome"}, nil,
		),
	}
}

func (c *schedulerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.algStateDesc
	ch <- c.queueDepthDesc
	ch <- c.freeSlotsDesc
	ch <- c.stallsDesc
	ch <- c.finishedDesc
}

func (c *schedulerCollector) Collect(ch chan<- prometheus.Metric) {
	for st := algstate.INITIAL; int(st) < algstate.NumStates(); st++ {
		ch <- prometheus.MustNewConstMetric(c.algStateDesc, prometheus.GaugeValue,
			float64(c.sched.algStateGauges[st].Load()), st.String())
	}

	ch <- prometheus.MustNewConstMetric(c.queueDepthDesc, prometheus.GaugeValue,
		float64(c.sched.queueDepthGauges[queueNormal].Load()), "normal")
	ch <- prometheus.MustNewConstMetric(c.queueDepthDesc, prometheus.GaugeValue,
		float64(c.sched.queueDepthGauges[queueBlocking].Load()), "blocking")
	ch <- prometheus.MustNewConstMetric(c.queueDepthDesc, prometheus.GaugeValue,
		float64(c.sched.queueDepthGauges[queueAccelerated].Load()), "accelerated")

	ch <- prometheus.MustNewConstMetric(c.freeSlotsDesc, prometheus.GaugeValue, float64(c.sched.freeSlots.Load()))
	ch <- prometheus.MustNewConstMetric(c.stallsDesc, prometheus.CounterValue, float64(c.sched.stallCount.Load()))
	ch <- prometheus.MustNewConstMetric(c.finishedDesc, prometheus.CounterValue, float64(c.sched.finishedOK.Load()), "ok")
	ch <- prometheus.MustNewConstMetric(c.finishedDesc, prometheus.CounterValue, float64(c.sched.finishedFailed.Load()), "failed")
}
