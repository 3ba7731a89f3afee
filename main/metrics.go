/*
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	metrics.go: Daemon level Prometheus metrics. The payload core registers its own.

*/

package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	currentTemp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "payloadd_cpu_temp",
		Help: "Current CPU temp.",
	})

	deviceConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "payloadd_device_connected",
		Help: "1 while the IMU is open.",
	})

	totalPolls = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payloadd_polls_total",
		Help: "Telemetry polls run.",
	})

	totalReopenFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payloadd_reopen_failures_total",
		Help: "Attempts to reopen a lost IMU that failed.",
	})

	totalUptime = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payloadd_total_uptime",
			Help: "Total uptime.",
		},
		[]string{"all"},
	)
)

func registerMetrics(reg prometheus.Registerer) {
	reg.MustRegister(currentTemp)
	reg.MustRegister(deviceConnected)
	reg.MustRegister(totalPolls)
	reg.MustRegister(totalReopenFailures)
	reg.MustRegister(totalUptime)
}

func updateStats(stop <-chan struct{}) {
	updateTicker := time.NewTicker(1 * time.Second)
	defer updateTicker.Stop()
	for {
		select {
		case <-updateTicker.C:
		case <-stop:
			return
		}
		totalUptime.With(prometheus.Labels{"all": "all"}).Inc()
		statusMutex.Lock()
		currentTemp.Set(float64(globalStatus.CPUTemp))
		statusMutex.Unlock()
	}
}
