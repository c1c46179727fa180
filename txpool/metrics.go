// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import "github.com/luxfi/geth/metrics"

// poolMetrics mirrors the go-ethereum metrics.NewRegistered* style
// (core/txpool/txpool.go): a flat set of gauges and meters held per pool and
// registered against a shared metrics.Registry, namespaced under "txpool/".
type poolMetrics struct {
	pendingGauge   *metrics.Gauge
	gasUsedGauge   *metrics.Gauge
	bytesGauge     *metrics.Gauge
	insertedMeter  *metrics.Meter
	rejectedMeter  *metrics.Meter
	evictedMeter   *metrics.Meter
	expiredMeter   *metrics.Meter
	extractedMeter *metrics.Meter
}

func newPoolMetrics(registry metrics.Registry) *poolMetrics {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &poolMetrics{
		pendingGauge:   metrics.NewRegisteredGauge("txpool/pending", registry),
		gasUsedGauge:   metrics.NewRegisteredGauge("txpool/gas", registry),
		bytesGauge:     metrics.NewRegisteredGauge("txpool/bytes", registry),
		insertedMeter:  metrics.NewRegisteredMeter("txpool/inserted", registry),
		rejectedMeter:  metrics.NewRegisteredMeter("txpool/rejected", registry),
		evictedMeter:   metrics.NewRegisteredMeter("txpool/evicted", registry),
		expiredMeter:   metrics.NewRegisteredMeter("txpool/expired", registry),
		extractedMeter: metrics.NewRegisteredMeter("txpool/extracted", registry),
	}
}

func (m *poolMetrics) setUsage(txs int, gas, bytes uint64) {
	m.pendingGauge.Update(int64(txs))
	m.gasUsedGauge.Update(int64(gas))
	m.bytesGauge.Update(int64(bytes))
}

func (m *poolMetrics) onInserted()       { m.insertedMeter.Mark(1) }
func (m *poolMetrics) onRejected()       { m.rejectedMeter.Mark(1) }
func (m *poolMetrics) onEvicted(n int)   { m.evictedMeter.Mark(int64(n)) }
func (m *poolMetrics) onExpired(n int)   { m.expiredMeter.Mark(int64(n)) }
func (m *poolMetrics) onExtracted(n int) { m.extractedMeter.Mark(int64(n)) }
