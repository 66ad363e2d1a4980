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
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongoManager owns a mongo.Client. Reconnection and pool health are left
// to the driver.
type mongoManager struct {
	config    *ConnectionConfig
	client    *mongo.Client
	store     *mongoDatabase
	metrics   *Metrics
	logger    Logger
	mu        sync.RWMutex
	connected bool
	lastError error

	openConns atomic.Int64
	inUse     atomic.Int64
	waitCount atomic.Int64
	closed    atomic.Int64
}

// NewMongoManager returns an AbstractDatabaseManager backed by the MongoDB driver.
func NewMongoManager(config *ConnectionConfig, metrics *Metrics) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &mongoManager{
		config:  config,
		metrics: metrics,
		logger:  GetLogger(),
	}
}

// mongoURI returns the configured URI or one built from the explicit fields.
func mongoURI(cfg *ConnectionConfig) string {
	if cfg.URI != "" {
		return cfg.URI
	}
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:   "/" + cfg.DBName,
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String() + "?"
}

func (mm *mongoManager) clientOptions() *options.ClientOptions {
	opts := options.Client().ApplyURI(mongoURI(mm.config))
	if mm.config.MaxOpenConns > 0 {
		opts.SetMaxPoolSize(uint64(mm.config.MaxOpenConns))
	}
	if mm.config.ConnMaxIdleTime > 0 {
		opts.SetMaxConnIdleTime(mm.config.ConnMaxIdleTime)
	}
	if mm.config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(mm.config.ConnectTimeout)
	}
	if mm.config.AppName != "" {
		opts.SetAppName(mm.config.AppName)
	}

	hook := NewCommandHook(mm.config.EnableQueryLog, mm.config.SlowQueryTime, mm.logger, mm.metrics)
	opts.SetMonitor(hook.Monitor())
	opts.SetPoolMonitor(&event.PoolMonitor{Event: mm.poolEvent})
	return opts
}

func (mm *mongoManager) poolEvent(e *event.PoolEvent) {
	switch e.Type {
	case event.ConnectionCreated:
		mm.openConns.Add(1)
	case event.ConnectionClosed:
		mm.openConns.Add(-1)
		mm.closed.Add(1)
	case event.GetStarted:
		mm.waitCount.Add(1)
	case event.GetSucceeded:
		mm.inUse.Add(1)
	case event.ConnectionReturned:
		mm.inUse.Add(-1)
	}
}

func (mm *mongoManager) Connect(ctx context.Context) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.connected && mm.client != nil {
		return nil
	}

	client, err := mongo.Connect(ctx, mm.clientOptions())
	if err != nil {
		mm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	timeout := mm.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctxTimeout, readpref.Primary()); err != nil {
		mm.lastError = err
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("database connection test failed: %w", err)
	}

	mm.client = client
	mm.connected = true
	mm.lastError = nil
	mm.store = newMongoDatabase(client.Database(mm.config.DBName), mm.Disconnect)

	mm.logger.Info("Database connected successfully:", "type", TypeMongoDB, "host", mm.config.Host, "database", mm.config.DBName)
	return nil
}

func (mm *mongoManager) Disconnect(ctx context.Context) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.client == nil {
		return nil
	}
	err := mm.client.Disconnect(ctx)
	mm.client = nil
	mm.store = nil
	mm.connected = false

	if err != nil {
		mm.logger.Error("Failed to close database connection", "error", err)
	} else {
		mm.logger.Info("Database connection closed")
	}
	return err
}

func (mm *mongoManager) Ping(ctx context.Context) error {
	mm.mu.RLock()
	client := mm.client
	mm.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("database not connected")
	}
	return client.Ping(ctx, readpref.Primary())
}

func (mm *mongoManager) Database() Database {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	if mm.store == nil {
		return nil
	}
	return mm.store
}

// Client returns the underlying driver client.
func (mm *mongoManager) Client() *mongo.Client {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.client
}

func (mm *mongoManager) HealthCheck(ctx context.Context) *HealthStatus {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     mm.connected,
		Backend:       TypeMongoDB,
		MaxOpenConns:  mm.config.MaxOpenConns,
	}

	if mm.client == nil {
		status.LastError = "Database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := mm.client.Ping(ctxTimeout, readpref.Primary())
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Connected = false
		status.LastError = err.Error()
		mm.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		mm.lastError = nil
	}

	stats := mm.GetStats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	return status
}

func (mm *mongoManager) GetStats() *DBStats {
	open := int(mm.openConns.Load())
	inUse := int(mm.inUse.Load())
	idle := open - inUse
	if idle < 0 {
		idle = 0
	}
	return &DBStats{
		MaxOpenConns:      mm.config.MaxOpenConns,
		OpenConns:         open,
		InUse:             inUse,
		Idle:              idle,
		WaitCount:         mm.waitCount.Load(),
		MaxIdleTimeClosed: mm.closed.Load(),
	}
}

func (mm *mongoManager) SetLogger(logger Logger) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.logger = logger
}
