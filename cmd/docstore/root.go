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

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tomoncle/docstore/database"
	"github.com/tomoncle/docstore/utils"
)

const envPrefix = "DOCSTORE"

// app carries the settings shared by every sub-command.
type app struct {
	v   *viper.Viper
	cfg *database.Config
}

// newRootCommand builds the docstore command tree with its own viper
// instance so that repeated invocations do not share state.
func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "docstore",
		Short:         "Inspect and maintain document collections",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("uri", "", "Connection string, e.g. mongodb://localhost:27017/shop? or sqlite://data/shop?")
	flags.String("config", "", "Path to a YAML config file")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("log-dir", "", "Also write logs to daily rolling files under this directory")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.load(cmd)
	}
	rootCmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		return utils.CloseFileLogs()
	}

	rootCmd.AddCommand(
		pingCommand(a),
		insertCommand(a),
		countCommand(a),
		getCommand(a),
		findCommand(a),
		groupsCommand(a),
		purgeCommand(a),
		indexCommand(a),
	)
	return rootCmd
}

// load reads the config file, DOCSTORE_* environment variables and flags,
// in increasing order of precedence.
func (a *app) load(cmd *cobra.Command) error {
	flags := cmd.Flags()
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlag("connection.uri", flags.Lookup("uri")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := a.v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := a.v.BindPFlag("log.dir", flags.Lookup("log-dir")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	a.v.SetDefault("log.max_age_days", 7)
	a.v.SetDefault("log.format", "text")
	a.v.SetDefault("log.file_level", "trace")

	if path, _ := flags.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := database.DefaultConfig()
	if err := a.v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	a.cfg = cfg

	utils.ConfigureLogLevel(a.v.GetString("log_level"))
	if dir := a.v.GetString("log.dir"); dir != "" {
		utils.ConfigureFileLogFormat(a.v.GetString("log.format"))
		utils.ConfigureFileLogLevel(a.v.GetString("log.file_level"))
		if err := utils.ConfigureFileLog(dir, a.v.GetInt("log.max_age_days")); err != nil {
			return fmt.Errorf("failed to enable file logging: %w", err)
		}
	}
	return nil
}

// withDatabase opens the configured database for the duration of run.
func (a *app) withDatabase(
	run func(ctx context.Context, cmd *cobra.Command, db database.Database, args []string) error,
) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if a.cfg.Connection.URI == "" && a.cfg.Connection.Type == "" {
			return fmt.Errorf("no database configured: pass --uri or set %s_CONNECTION_URI", envPrefix)
		}
		ctx := cmd.Context()
		db, err := database.InitDB(ctx, a.cfg)
		if err != nil {
			return err
		}
		defer func() { _ = database.CloseDB(ctx) }()
		return run(ctx, cmd, db, args)
	}
}
