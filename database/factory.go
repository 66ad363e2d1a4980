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
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// databaseNamePattern captures the word characters immediately before '?'.
var databaseNamePattern = regexp.MustCompile(`(\w*)\?`)

// DatabaseName extracts the database name from a connection string. It
// returns "" when the string has no '?' or nothing precedes it.
func DatabaseName(connectionString string) string {
	m := databaseNamePattern.FindStringSubmatch(connectionString)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// Create builds a client from connectionString, connects it and returns the
// database named in the string. The name must sit directly before '?', for
// example "mongodb://localhost:27017/shop?" or "sqlite://data/shop?mode=memory".
func Create(ctx context.Context, connectionString string) (Database, error) {
	if DatabaseName(connectionString) == "" {
		return nil, ErrEmptyDatabaseName
	}
	cfg, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	f := NewDatabaseFactory()
	if _, err := f.create(cfg); err != nil {
		return nil, err
	}
	if err := f.InitializeDatabase(ctx); err != nil {
		return nil, err
	}
	return f.GetDatabase(), nil
}

// ParseConnectionString turns a connection URI into a ConnectionConfig
// seeded with DefaultConnectionConfig.
func ParseConnectionString(uri string) (*ConnectionConfig, error) {
	cfg := DefaultConnectionConfig()
	if err := applyURI(cfg, uri); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyURI(cfg *ConnectionConfig, uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid connection string: %w", err)
	}
	typ, err := backendType(u.Scheme)
	if err != nil {
		return err
	}

	cfg.URI = uri
	cfg.Type = typ
	cfg.DBName = DatabaseName(uri)
	if cfg.DBName == "" {
		cfg.DBName = strings.Trim(u.Path, "/")
	}

	q := u.Query()
	if typ == TypeSQLite {
		cfg.Path = strings.TrimSuffix(filepath.Join(u.Host, u.Path), ".db")
		cfg.Memory = q.Get("mode") == "memory"
		return nil
	}

	cfg.Host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", p, err)
		}
		cfg.Port = port
	}
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	if v := q.Get("sslmode"); v != "" {
		cfg.SSLMode = v
	}
	if v := q.Get("appName"); v != "" {
		cfg.AppName = v
	}
	return nil
}

func backendType(scheme string) (string, error) {
	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return TypeMongoDB, nil
	case "sqlite", "sqlite3":
		return TypeSQLite, nil
	case "postgres", "postgresql":
		return TypePostgres, nil
	case "mysql":
		return TypeMySQL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// BaseDatabaseFactory creates and manages a configured database manager and
// provides helpers for initialization, health checks, and statistics.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	logger  Logger
	metrics *Metrics
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		logger: GetLogger(),
	}
}

// WithMetrics instruments managers created afterwards with m.
func (f *BaseDatabaseFactory) WithMetrics(m *Metrics) *BaseDatabaseFactory {
	f.metrics = m
	return f
}

// CreateFromConfig constructs a database manager from the given connection
// configuration, applying environment overrides and setting the factory logger.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}

	// Override sensitive config from environment variables
	f.overrideFromEnv(cfg)

	if cfg.URI != "" {
		if err := applyURI(cfg, cfg.URI); err != nil {
			return nil, err
		}
	}
	return f.create(cfg)
}

func (f *BaseDatabaseFactory) create(cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	var manager AbstractDatabaseManager
	switch cfg.Type {
	case TypeMongoDB:
		manager = NewMongoManager(cfg, f.metrics)
	case TypeSQLite, "sqlite3", TypePostgres, "postgresql", TypeMySQL:
		manager = NewDatabaseManager(cfg, f.metrics)
	default:
		return nil, fmt.Errorf("%w: database type %q, supported types: %v", ErrUnsupportedScheme, cfg.Type,
			[]string{TypeMongoDB, TypePostgres, TypeMySQL, TypeSQLite})
	}
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

// overrideFromEnv overrides configuration values from environment variables.
func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	if uri := os.Getenv("DB_URI"); uri != "" {
		cfg.URI = uri
	}
	if typ := os.Getenv("DB_TYPE"); typ != "" {
		cfg.Type = typ
	}
	// Database connection info
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if username := os.Getenv("DB_USERNAME"); username != "" {
		cfg.Username = username
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.SSLMode = sslmode
	}
	// Connection pool config
	if maxIdle := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdle != "" {
		if val, err := strconv.Atoi(maxIdle); err == nil {
			cfg.MaxIdleConns = val
		}
	}
	if maxOpen := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpen != "" {
		if val, err := strconv.Atoi(maxOpen); err == nil {
			cfg.MaxOpenConns = val
		}
	}
	if maxLifetime := os.Getenv("DB_CONN_MAX_LIFETIME"); maxLifetime != "" {
		if val, err := strconv.Atoi(maxLifetime); err == nil {
			cfg.ConnMaxLifetime = time.Duration(val) * time.Second
		}
	}

	// Logging config
	if enableQueryLog := os.Getenv("DB_ENABLE_QUERY_LOG"); enableQueryLog != "" {
		cfg.EnableQueryLog = enableQueryLog == "true"
	}
}

// InitializeDatabase connects the managed client.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}

	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	f.logger.Info("Database initialization completed!")
	return nil
}

// GetManager returns the underlying database manager.
func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

// GetDatabase returns the database handle, or nil if not initialized.
func (f *BaseDatabaseFactory) GetDatabase() Database {
	if f.manager == nil {
		return nil
	}
	return f.manager.Database()
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the database connection managed by the factory.
func (f *BaseDatabaseFactory) Close(ctx context.Context) error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect(ctx)
}

// GetHealthStatus returns the current database health status from the manager.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			Healthy:       false,
			Connected:     false,
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

// GetStats returns database connection statistics from the manager.
func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
