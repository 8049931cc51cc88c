/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package stats exposes the decoder's running counters (§3, §6
// EXPANSION "Metrics") through a Prometheus collector, grounded on the
// teacher's pkg/exporter.TCPInfoCollector.
package stats

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coresight-tools/mtrace/fanout"
	"github.com/coresight-tools/mtrace/pump"
)

var (
	tpiuSyncDesc = prometheus.NewDesc(
		"mtrace_tpiu_sync_count", "Total TPIU frame sync events.", nil, nil)
	tpiuHalfSyncDesc = prometheus.NewDesc(
		"mtrace_tpiu_half_sync_count", "Total TPIU half-sync pairs discarded.", nil, nil)
	tpiuPacketDesc = prometheus.NewDesc(
		"mtrace_tpiu_packet_count", "Total TPIU frames completed.", nil, nil)
	tpiuLostSyncDesc = prometheus.NewDesc(
		"mtrace_tpiu_lost_sync_count", "Total TPIU sync losses (frame timeout).", nil, nil)
	tpiuErrorDesc = prometheus.NewDesc(
		"mtrace_tpiu_error_count", "Total TPIU framing errors.", nil, nil)

	itmSyncDesc = prometheus.NewDesc(
		"mtrace_itm_sync_count", "Total ITM sync packets seen.", nil, nil)
	itmLostSyncDesc = prometheus.NewDesc(
		"mtrace_itm_lost_sync_count", "Total ITM forced-unsync transitions.", nil, nil)
	itmOverflowDesc = prometheus.NewDesc(
		"mtrace_itm_overflow_count", "Total ITM overflow packets.", nil, nil)

	fanoutDropsDesc = prometheus.NewDesc(
		"mtrace_fanout_channel_drops_total", "Total records dropped by a fan-out channel under backpressure.",
		[]string{"channel"}, nil)
)

// Collector aggregates the pump's decoder counters and a fan-out
// group's per-channel drop counts into a single Prometheus collector.
type Collector struct {
	mu    sync.Mutex
	pump  *pump.Pump
	group *fanout.Group
}

// NewCollector builds a collector reading live counters from p and g.
// Either may be nil if that subsystem isn't wired into the run.
func NewCollector(p *pump.Pump, g *fanout.Group) *Collector {
	return &Collector{pump: p, group: g}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- tpiuSyncDesc
	descs <- tpiuHalfSyncDesc
	descs <- tpiuPacketDesc
	descs <- tpiuLostSyncDesc
	descs <- tpiuErrorDesc
	descs <- itmSyncDesc
	descs <- itmLostSyncDesc
	descs <- itmOverflowDesc
	descs <- fanoutDropsDesc
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pump != nil {
		t := c.pump.TPIUCounters()
		metrics <- prometheus.MustNewConstMetric(tpiuSyncDesc, prometheus.CounterValue, float64(t.SyncCount))
		metrics <- prometheus.MustNewConstMetric(tpiuHalfSyncDesc, prometheus.CounterValue, float64(t.HalfSyncCount))
		metrics <- prometheus.MustNewConstMetric(tpiuPacketDesc, prometheus.CounterValue, float64(t.PacketCount))
		metrics <- prometheus.MustNewConstMetric(tpiuLostSyncDesc, prometheus.CounterValue, float64(t.LostSyncCount))
		metrics <- prometheus.MustNewConstMetric(tpiuErrorDesc, prometheus.CounterValue, float64(t.ErrorCount))

		i := c.pump.ITMCounters()
		metrics <- prometheus.MustNewConstMetric(itmSyncDesc, prometheus.CounterValue, float64(i.SyncCount))
		metrics <- prometheus.MustNewConstMetric(itmLostSyncDesc, prometheus.CounterValue, float64(i.LostSyncCount))
		metrics <- prometheus.MustNewConstMetric(itmOverflowDesc, prometheus.CounterValue, float64(i.OverflowCount))
	}

	if c.group != nil {
		for i, ch := range c.group.Software {
			if ch == nil {
				continue
			}
			label := fmt.Sprintf("sw%d", i)
			metrics <- prometheus.MustNewConstMetric(fanoutDropsDesc, prometheus.CounterValue, float64(ch.Drops()), label)
		}
		if c.group.Hardware != nil {
			metrics <- prometheus.MustNewConstMetric(fanoutDropsDesc, prometheus.CounterValue, float64(c.group.Hardware.Drops()), "hardware")
		}
	}
}
