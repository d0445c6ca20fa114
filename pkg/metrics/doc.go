// Package metrics exports reactive engine activity to Prometheus.
//
// Install registers an observer with the engine:
//
//	reg := prometheus.NewRegistry()
//	_, remove := metrics.Install(metrics.WithRegistry(reg))
//	defer remove()
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Every graph in the process reports to the same observer, so the metrics
// are process-wide totals.
package metrics
