// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smu"

var registry = prometheus.NewRegistry()

// MetricOpts contains naming pieces of the exposed metric
type MetricOpts struct {
	Subsystem string
	Name      string
	Help      string
}

// Registry returns the registry all u-smu collectors are registered on
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// StartMetrics adds the metrics handler to a http.ServeMux
func StartMetrics(mux *http.ServeMux) {
	mux.Handle("/metrics", Handler())
}

// CounterVec creates and registers a prometheus.CounterVec
func CounterVec(opts MetricOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
	}, labels)
	registry.MustRegister(c)
	return c
}
