// go-m6e
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-m6e.
//
// go-m6e is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-m6e is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-m6e; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports session counters to prometheus
type Collector struct {
	session     *Session
	records     *prometheus.Desc
	tags        *prometheus.Desc
	uniqueTags  *prometheus.Desc
	keepAlives  *prometheus.Desc
	throttles   *prometheus.Desc
	unknown     *prometheus.Desc
	errs        *prometheus.Desc
	inField     *prometheus.Desc
	temperature *prometheus.Desc
}

// NewCollector returns a collector for s under the m6e namespace
func NewCollector(s *Session) *Collector {
	labels := prometheus.Labels{"session": s.ID()}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("m6e", "inventory", name), help, nil, labels)
	}
	return &Collector{
		session:     s,
		records:     desc("records_total", "Continuous-mode records decoded"),
		tags:        desc("tag_reads_total", "Tag records received"),
		uniqueTags:  desc("tags_arrived_total", "Tags that entered the field"),
		keepAlives:  desc("keepalives_total", "Keep-alive records received"),
		throttles:   desc("throttles_total", "Temperature throttle records received"),
		unknown:     desc("unknown_total", "Records that could not be classified"),
		errs:        desc("errors_total", "Stream errors"),
		inField:     desc("tags_in_field", "Tags currently in the field"),
		temperature: desc("temperature_celsius", "Last reported module temperature"),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.records
	ch <- c.tags
	ch <- c.uniqueTags
	ch <- c.keepAlives
	ch <- c.throttles
	ch <- c.unknown
	ch <- c.errs
	ch <- c.inField
	ch <- c.temperature
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.session.Metrics()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.records, m.Records)
	counter(c.tags, m.Tags)
	counter(c.uniqueTags, m.UniqueTags)
	counter(c.keepAlives, m.KeepAlives)
	counter(c.throttles, m.Throttles)
	counter(c.unknown, m.Unknown)
	counter(c.errs, m.Errors)
	ch <- prometheus.MustNewConstMetric(c.inField, prometheus.GaugeValue, float64(m.InField))
	if m.Temperature != -1 {
		ch <- prometheus.MustNewConstMetric(c.temperature, prometheus.GaugeValue, float64(m.Temperature))
	}
}
