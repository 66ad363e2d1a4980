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
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/docstore/utils"
)

func TestDefaultLoggerFields(t *testing.T) {
	base, hook := logtest.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := NewDefaultLogger(base)

	l.Info("Collection table ready", "database", "shop", "collection", "users", "dangling")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Collection table ready", entry.Message)
	assert.Equal(t, logrus.Fields{"database": "shop", "collection": "users"}, entry.Data)

	l.SetLevel(LogLevelWarn)
	assert.Equal(t, logrus.WarnLevel, base.GetLevel())
	l.Debug("hidden")
	assert.Len(t, hook.AllEntries(), 1)

	l.Error("failed", "attempt", 2)
	assert.Equal(t, 2, hook.LastEntry().Data["attempt"])
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "DEBUG", LogLevel(42).String())
}

func TestNewDefaultLoggerFallback(t *testing.T) {
	l := NewDefaultLogger(nil)
	assert.Same(t, utils.GetLogger(loggerName), l.logger)
}
