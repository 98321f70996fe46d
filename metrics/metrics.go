// Copyright (c) 2020 - for information on the respective copyright owner
// see the NOTICE file and/or the repository at
// https://github.com/direct-state-transfer/chainsheet
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes prometheus metrics for the chain clients and contract sessions.
//
// All methods can be called on a nil *Metrics, in which case they do nothing.
// This allows components to take metrics as an optional dependency.
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Kinds of transactions counted by TxSent.
const (
	TxNative   = "native"
	TxContract = "contract"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	TxSent           *prometheus.CounterVec
	EventsReceived   *prometheus.CounterVec
	MulticallBatches prometheus.Counter
	MulticallCalls   prometheus.Counter
	BlockAge         prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New initializes the collectors and registers them with a new registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		TxSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainsheet_transactions_sent_total",
			Help: "Total number of transactions submitted, by kind",
		}, []string{"kind"}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainsheet_events_received_total",
			Help: "Total number of contract event logs delivered to watchers, by event",
		}, []string{"event"}),
		MulticallBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainsheet_multicall_batches_total",
			Help: "Total number of aggregated multicall requests sent",
		}),
		MulticallCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainsheet_multicall_calls_total",
			Help: "Total number of calls included in multicall requests",
		}),
		BlockAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chainsheet_rpc_block_age_seconds",
			Help: "Age of the latest block reported by the rpc endpoint at the last sync check",
		}),
		gatherer: reg,
	}
	for _, c := range []prometheus.Collector{m.TxSent, m.EventsReceived, m.MulticallBatches, m.MulticallCalls, m.BlockAge} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "registering collector")
		}
	}
	return m, nil
}

// IncTxSent counts a submitted transaction of the given kind.
func (m *Metrics) IncTxSent(kind string) {
	if m == nil {
		return
	}
	m.TxSent.WithLabelValues(kind).Inc()
}

// AddEvents counts n logs of the named event delivered to a watcher.
func (m *Metrics) AddEvents(event string, n int) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(event).Add(float64(n))
}

// ObserveMulticall counts one aggregated request containing n calls.
func (m *Metrics) ObserveMulticall(n int) {
	if m == nil {
		return
	}
	m.MulticallBatches.Inc()
	m.MulticallCalls.Add(float64(n))
}

// ObserveBlockAge records the age of the latest block.
func (m *Metrics) ObserveBlockAge(age time.Duration) {
	if m == nil {
		return
	}
	m.BlockAge.Set(age.Seconds())
}

// Handler returns an http handler serving the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve serves the metrics at /metrics on the given address until the context is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "listening for metrics")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		srv.Close() // nolint: errcheck, gosec
	}()
	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "serving metrics")
	}
	return nil
}
