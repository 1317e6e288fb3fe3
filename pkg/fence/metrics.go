/*
 * Copyright (c) 2024-2025 SUSE LLC
 *
 * This program is free software; you can redistribute it and/or
 * modify it under the terms of the GNU General Public License
 * as published by the Free Software Foundation; either version 2
 * of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, see
 * <https://www.gnu.org/licenses/>
 */
package fence

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"suse.com/hafence/pkg/config"
)

const metrics_namespace = "hafence"

type collector struct {
	cycles *prometheus.CounterVec
	failures *prometheus.GaugeVec
	escalations *prometheus.CounterVec
}

func new_collector() *collector {
	return &collector{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics_namespace,
				Subsystem: "fence",
				Name: "cycles_total",
				Help: "Heartbeat cycles per pool, by result.",
			}, []string{"pool", "result"},
		),
		failures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metrics_namespace,
				Subsystem: "fence",
				Name: "consecutive_failures",
				Help: "Consecutive failed heartbeat cycles per pool.",
			}, []string{"pool"},
		),
		escalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics_namespace,
				Subsystem: "fence",
				Name: "escalations_total",
				Help: "Failure actions taken, by pool and action.",
			}, []string{"pool", "action"},
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	c.cycles.Describe(ch)
	c.failures.Describe(ch)
	c.escalations.Describe(ch)
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	c.cycles.Collect(ch)
	c.failures.Collect(ch)
	c.escalations.Collect(ch)
}

func (c *collector) cycle(uuid string, ok bool, failures int) {
	var label string = "failure"
	if (ok) {
		label = "success"
	}
	c.cycles.WithLabelValues(uuid, label).Inc()
	c.failures.WithLabelValues(uuid).Set(float64(failures))
}

func (c *collector) escalated(uuid string, action config.Action) {
	c.escalations.WithLabelValues(uuid, string(action)).Inc()
}

func (c *collector) forget(uuid string) {
	c.failures.DeleteLabelValues(uuid)
}

/* register the watchdog metrics with r */
func (w *Watchdog) Register_metrics(r prometheus.Registerer) error {
	var (
		err error
		are prometheus.AlreadyRegisteredError
	)
	err = r.Register(w.metrics)
	if (errors.As(err, &are)) {
		return nil
	}
	return err
}
