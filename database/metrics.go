/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

// Metrics counts and times store operations per backend.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the store collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil). Registering twice reuses the
// collectors already present.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = "docstore"
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Total store operations by backend, operation and status",
	}, []string{"backend", "operation", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "Latency of store operations",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"backend", "operation"})

	c, err := registerCollector(reg, operations)
	if err != nil {
		return nil, err
	}
	operations = c.(*prometheus.CounterVec)

	c, err = registerCollector(reg, duration)
	if err != nil {
		return nil, err
	}
	duration = c.(*prometheus.HistogramVec)

	return &Metrics{operations: operations, duration: duration}, nil
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) (prometheus.Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return collector, nil
}

// Observe records one operation. A "no rows" result counts as success.
func (m *Metrics) Observe(backend, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	operation = strings.ToLower(operation)
	status := statusOK
	if err != nil && !errors.Is(err, sql.ErrNoRows) && !errors.Is(err, ErrNoDocuments) {
		status = statusError
	}
	m.operations.WithLabelValues(backend, operation, status).Inc()
	m.duration.WithLabelValues(backend, operation).Observe(d.Seconds())
}
