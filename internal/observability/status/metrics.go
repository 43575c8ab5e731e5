package status

import (
	"github.com/prometheus/client_golang/prometheus"
)

// plannerCollector turns a planner snapshot into Prometheus metrics at
// scrape time.
type plannerCollector struct {
	src PlannerSource

	fired     *prometheus.Desc
	late      *prometheus.Desc
	exhausted *prometheus.Desc
	queued    *prometheus.Desc
	running   *prometheus.Desc
	panics    *prometheus.Desc
	jobFired  *prometheus.Desc
	jobNext   *prometheus.Desc
}

func newPlannerCollector(src PlannerSource) *plannerCollector {
	const ns = "periodic_planner"
	return &plannerCollector{
		src:       src,
		fired:     prometheus.NewDesc(ns+"_fired_total", "Callbacks dispatched.", nil, nil),
		late:      prometheus.NewDesc(ns+"_late_total", "Firings dispatched past the late threshold.", nil, nil),
		exhausted: prometheus.NewDesc(ns+"_exhausted_total", "Jobs whose schedule ran out.", nil, nil),
		queued:    prometheus.NewDesc(ns+"_queued_jobs", "Jobs waiting in the queue.", nil, nil),
		running:   prometheus.NewDesc(ns+"_loop_running", "1 while the scheduling loop is active.", nil, nil),
		panics:    prometheus.NewDesc(ns+"_callback_panics_total", "Callbacks that panicked.", nil, nil),
		jobFired:  prometheus.NewDesc(ns+"_job_fired_total", "Firings per queued job.", []string{"job", "id"}, nil),
		jobNext:   prometheus.NewDesc(ns+"_job_next_seconds", "Unix time of the job's next due instant.", []string{"job", "id"}, nil),
	}
}

func (c *plannerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.fired
	ch <- c.late
	ch <- c.exhausted
	ch <- c.queued
	ch <- c.running
	ch <- c.panics
	ch <- c.jobFired
	ch <- c.jobNext
}

func (c *plannerCollector) Collect(ch chan<- prometheus.Metric) {
	if c.src == nil {
		return
	}
	s := c.src.Snapshot()
	running := 0.0
	if s.Running {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(c.fired, prometheus.CounterValue, float64(s.Fired))
	ch <- prometheus.MustNewConstMetric(c.late, prometheus.CounterValue, float64(s.Late))
	ch <- prometheus.MustNewConstMetric(c.exhausted, prometheus.CounterValue, float64(s.Exhausted))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(s.Queued))
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
	ch <- prometheus.MustNewConstMetric(c.panics, prometheus.CounterValue, float64(s.Goroutines.Panics))
	for _, j := range s.Jobs {
		ch <- prometheus.MustNewConstMetric(c.jobFired, prometheus.CounterValue, float64(j.Fired), j.Name, j.ID)
		ch <- prometheus.MustNewConstMetric(c.jobNext, prometheus.GaugeValue, float64(j.Next.UnixNano())/1e9, j.Name, j.ID)
	}
}
