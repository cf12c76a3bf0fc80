/*
 * Copyright 2025 Carver Automation Corporation.
 *
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
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/carverauto/backupradar/pkg/config"
	"github.com/carverauto/backupradar/pkg/dashboard"
	"github.com/carverauto/backupradar/pkg/lifecycle"
	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/version"
)

var errFetchFailed = errors.New("report log fetch failed")

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	fsFlags := flag.NewFlagSet("backupradar-dashboard", flag.ContinueOnError)
	configPath := fsFlags.String("config", dashboard.ConfigFileName, "Path to dashboard config file")
	webAddr := fsFlags.String("web", "", "Serve the web dashboard on this address instead of the terminal UI")
	once := fsFlags.Bool("once", false, "Print the status table once and exit")
	query := fsFlags.String("filter", "", "Filter rows by name or identifier (with -once)")
	showVersion := fsFlags.Bool("version", false, "Print version and exit")

	if err := fsFlags.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println(version.Banner("backupradar-dashboard"))

		return nil
	}

	// Step 1: Load config
	var cfg dashboard.Config
	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *webAddr != "" {
		cfg.ListenAddr = *webAddr
	}

	// Step 2: Create logger. The terminal UI owns stdout.
	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{
			Level:  "warn",
			Output: logger.OutputStderr,
		}
	}

	dashLogger, err := lifecycle.CreateComponentLogger(ctx, "dashboard", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if shutdownErr := lifecycle.ShutdownLogger(); shutdownErr != nil {
			log.Printf("Failed to shutdown logger: %v", shutdownErr)
		}
	}()

	// Step 3: Wire the service
	svc, err := dashboard.NewFromConfig(&cfg, dashLogger)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	defer svc.Close()

	switch {
	case *once:
		view := svc.Current(ctx)
		if err := dashboard.RenderText(os.Stdout, &view, *query, time.Now()); err != nil {
			return err
		}

		if view.Err != nil {
			return fmt.Errorf("%w: %w", errFetchFailed, view.Err)
		}

		return nil
	case cfg.ListenAddr != "":
		return lifecycle.RunService(ctx, &lifecycle.ServiceOptions{
			ServiceName: "backupradar-dashboard",
			Service:     dashboard.NewWebServer(cfg.ListenAddr, svc, svc.Metrics(), dashLogger),
			Logger:      dashLogger,
		})
	default:
		return dashboard.RunTUI(ctx, svc, time.Duration(cfg.RefreshInterval))
	}
}
