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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/event"
)

type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

var _ bun.QueryHook = (*slowQueryHook)(nil)

func (h *slowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}

	duration := time.Since(event.StartTime)
	if duration > h.slowTime && h.logger != nil {
		h.logger.Warn("\x1b[33;5mDatabase slow query detected:⚠️\x1b[0m",
			"duration", duration,
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}

// metricsQueryHook feeds every Bun query into Metrics.
type metricsQueryHook struct {
	metrics *Metrics
	backend string
}

var _ bun.QueryHook = (*metricsQueryHook)(nil)

func newMetricsQueryHook(m *Metrics, backend string) *metricsQueryHook {
	return &metricsQueryHook{metrics: m, backend: backend}
}

func (h *metricsQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *metricsQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	op := event.Operation()
	// Raw queries report SELECT whatever the statement is.
	if _, ok := event.IQuery.(*bun.RawQuery); ok {
		if fields := strings.Fields(event.Query); len(fields) > 0 {
			op = fields[0]
		}
	}
	h.metrics.Observe(h.backend, op, time.Since(event.StartTime), event.Err)
}

// CommandHook logs, times and counts MongoDB commands. It is installed on
// the client through Monitor.
//
// The MONGODEBUG environment variable overrides the configured switches:
// "0" or empty disables the log, "1" prints failures only and "2" prints
// every command.
type CommandHook struct {
	envName  string
	enabled  bool
	verbose  bool
	slowTime time.Duration
	writer   io.Writer
	logger   Logger
	metrics  *Metrics
	started  sync.Map // request id -> command text
}

// NewCommandHook creates a command hook. A zero slowTime disables slow command warnings.
func NewCommandHook(enabled bool, slowTime time.Duration, logger Logger, metrics *Metrics) *CommandHook {
	return &CommandHook{
		envName:  "MONGODEBUG",
		enabled:  enabled,
		verbose:  enabled,
		slowTime: slowTime,
		writer:   os.Stdout,
		logger:   logger,
		metrics:  metrics,
	}
}

// SetWriter redirects the command log.
func (h *CommandHook) SetWriter(w io.Writer) {
	if w != nil {
		h.writer = w
	}
}

// Monitor returns the driver command monitor backed by h.
func (h *CommandHook) Monitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started:   h.commandStarted,
		Succeeded: h.commandSucceeded,
		Failed:    h.commandFailed,
	}
}

func (h *CommandHook) switches() (enabled, verbose bool) {
	enabled, verbose = h.enabled, h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	return enabled, verbose
}

func (h *CommandHook) commandStarted(_ context.Context, e *event.CommandStartedEvent) {
	if enabled, _ := h.switches(); enabled {
		h.started.Store(e.RequestID, e.Command.String())
	}
}

func (h *CommandHook) commandSucceeded(_ context.Context, e *event.CommandSucceededEvent) {
	command, _ := h.started.LoadAndDelete(e.RequestID)
	h.finished(e.CommandFinishedEvent, command, "")
}

func (h *CommandHook) commandFailed(_ context.Context, e *event.CommandFailedEvent) {
	command, _ := h.started.LoadAndDelete(e.RequestID)
	h.finished(e.CommandFinishedEvent, command, e.Failure)
}

func (h *CommandHook) finished(e event.CommandFinishedEvent, command any, failure string) {
	var err error
	if failure != "" {
		err = errors.New(failure)
	}
	h.metrics.Observe(TypeMongoDB, e.CommandName, e.Duration, err)

	if h.slowTime > 0 && e.Duration > h.slowTime && h.logger != nil {
		h.logger.Warn("\x1b[33;5mDatabase slow command detected:⚠️\x1b[0m",
			"duration", e.Duration,
			"slow_threshold", h.slowTime,
			"command", e.CommandName,
			"database", e.DatabaseName,
		)
	}

	enabled, verbose := h.switches()
	if !enabled || (!verbose && failure == "") {
		return
	}

	text := e.CommandName
	if s, ok := command.(string); ok && s != "" {
		text = s
	}
	args := []interface{}{
		time.Now().Format("2006-01-02 15:04:05.000"),
		color.CyanString("%15s", "[MONGO]"),
		fmt.Sprintf("%17s", e.Duration.Round(time.Microsecond)),
		"  ", commandColor(e.CommandName).Sprint(e.DatabaseName + " " + text),
	}
	if failure != "" {
		args = append(args, "\t", color.New(color.BgRed).Sprintf(" %s ", failure))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func commandColor(name string) *color.Color {
	switch name {
	case "find", "aggregate", "count", "getMore":
		return color.New(color.FgGreen)
	case "insert":
		return color.New(color.FgBlue)
	case "update", "findAndModify":
		return color.New(color.FgYellow)
	case "delete":
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgRed)
	}
}
