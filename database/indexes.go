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
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// IndexDefinition describes an ascending single-field index on a collection.
type IndexDefinition struct {
	Collection  string `yaml:"collection"`
	Field       string `yaml:"field"`
	Description string `yaml:"description,omitempty"`
}

func (d IndexDefinition) String() string {
	return d.Collection + "." + d.Field
}

// IndexFile is the YAML structure that lists index definitions.
type IndexFile struct {
	Indexes []IndexDefinition `yaml:"indexes"`
}

// IndexManager applies index definitions loaded from a YAML file.
type IndexManager struct {
	definitions []IndexDefinition
	configPath  string
	logger      Logger
}

// NewIndexManager creates a manager for the given definitions.
func NewIndexManager(logger Logger, definitions ...IndexDefinition) *IndexManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &IndexManager{definitions: definitions, logger: logger}
}

// LoadIndexManager creates a manager from a YAML configuration file.
func LoadIndexManager(logger Logger, configPath string) (*IndexManager, error) {
	m := NewIndexManager(logger)
	m.configPath = configPath
	if err := m.ReloadConfig(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseIndexFile decodes index definitions from YAML.
func ParseIndexFile(data []byte) ([]IndexDefinition, error) {
	var file IndexFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	return file.Indexes, nil
}

func (m *IndexManager) loadFromConfig() ([]IndexDefinition, error) {
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", m.configPath)
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseIndexFile(data)
}

// ReloadConfig refreshes definitions from the YAML configuration file.
func (m *IndexManager) ReloadConfig() error {
	definitions, err := m.loadFromConfig()
	if err != nil {
		return err
	}
	m.definitions = definitions
	return nil
}

// ExportToConfig writes the current definitions into a YAML file at
// outputPath, creating directories as needed.
func (m *IndexManager) ExportToConfig(outputPath string) error {
	file := IndexFile{Indexes: make([]IndexDefinition, 0, len(m.definitions))}
	for _, d := range m.definitions {
		if d.Description == "" {
			d.Description = fmt.Sprintf("ascending index on %s", d)
		}
		file.Indexes = append(file.Indexes, d)
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Definitions returns the loaded definitions.
func (m *IndexManager) Definitions() []IndexDefinition {
	return m.definitions
}

// ForCollection returns the definitions targeting collection.
func (m *IndexManager) ForCollection(collection string) []IndexDefinition {
	var result []IndexDefinition
	for _, d := range m.definitions {
		if strings.EqualFold(d.Collection, collection) {
			result = append(result, d)
		}
	}
	return result
}

// Validate checks the definitions for missing names and duplicates.
func (m *IndexManager) Validate() []error {
	var errs []error
	seen := make(map[string]bool, len(m.definitions))
	for i, d := range m.definitions {
		if strings.TrimSpace(d.Collection) == "" {
			errs = append(errs, fmt.Errorf("index %d: collection name cannot be empty", i))
		}
		if strings.TrimSpace(d.Field) == "" {
			errs = append(errs, fmt.Errorf("index %d: field name cannot be empty: %s", i, d.Collection))
		}
		if seen[d.String()] {
			errs = append(errs, fmt.Errorf("duplicate index definition: %s", d))
		}
		seen[d.String()] = true
	}
	return errs
}

// EnsureAll creates every defined index on db and returns the created index
// names. It stops at the first failure.
func (m *IndexManager) EnsureAll(ctx context.Context, db Database) ([]string, error) {
	if errs := m.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	names := make([]string, 0, len(m.definitions))
	for _, d := range m.definitions {
		name, err := db.Collection(d.Collection).CreateIndex(ctx, d.Field)
		if err != nil {
			m.logger.Error("Failed to create index", "index", d.String(), "error", err)
			return names, fmt.Errorf("create index %s: %w", d, err)
		}
		m.logger.Debug("Index ready", "index", d.String(), "name", name)
		names = append(names, name)
	}
	return names, nil
}

// GetConfigPath returns the path to the YAML configuration file.
func (m *IndexManager) GetConfigPath() string {
	return m.configPath
}
