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
	"io"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/carverauto/backupradar/pkg/clock"
	"github.com/carverauto/backupradar/pkg/config"
	"github.com/carverauto/backupradar/pkg/identity"
	"github.com/carverauto/backupradar/pkg/lifecycle"
	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/reporter"
	"github.com/carverauto/backupradar/pkg/transport"
	"github.com/carverauto/backupradar/pkg/version"
)

const usage = `usage: backupradar-agent [command] [flags]

commands:
  run        check the backup directory once and report (default)
  loop       keep running and report every check_interval
  install    write backup_dir into the agent config
  identity   print this machine's identifier
`

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	command := "run"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	switch command {
	case "run":
		return runReport(ctx, args, false)
	case "loop":
		return runReport(ctx, args, true)
	case "install":
		return runInstall(args)
	case "identity":
		return runIdentity(ctx, args)
	case "help":
		fmt.Print(usage)

		return nil
	default:
		fmt.Fprint(os.Stderr, usage)

		return fmt.Errorf("unknown command %q", command)
	}
}

func runReport(ctx context.Context, args []string, loop bool) error {
	fsFlags := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fsFlags.String("config", reporter.DefaultConfigPath(), "Path to agent config file")
	showVersion := fsFlags.Bool("version", false, "Print version and exit")

	if err := fsFlags.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println(version.Banner("backupradar-agent"))

		return nil
	}

	var cfg reporter.Config

	path := *configPath
	if !config.FromEnv() {
		path = reporter.ResolveConfigPath(path)
	}

	// Step 1: Load config
	if err := config.NewConfig(nil).LoadAndValidate(ctx, path, &cfg); err != nil {
		if !config.FromEnv() && errors.Is(err, fs.ErrNotExist) {
			// Not installed on this machine yet; nothing to report.
			log.Printf("Config file %s not found, skipping report", path)

			return nil
		}

		if path != *configPath {
			return fmt.Errorf("failed to load legacy config %s (run \"install\" to migrate it): %w", path, err)
		}

		return fmt.Errorf("failed to load config: %w", err)
	}

	// Step 2: Create logger from loaded config
	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{
			Level:  "info",
			Output: reporter.DefaultLogPath(),
		}
	}

	agentLogger, err := lifecycle.CreateComponentLogger(ctx, "agent", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if shutdownErr := lifecycle.ShutdownLogger(); shutdownErr != nil {
			log.Printf("Failed to shutdown logger: %v", shutdownErr)
		}
	}()

	// Step 3: Wire the reporter
	sender, err := transport.NewFormTransport(cfg.FormURL, cfg.FormFields, time.Duration(cfg.SubmitTimeout))
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	rep := reporter.New(&cfg, identity.NewHardwareProvider(), nil, sender, agentLogger)

	if !loop {
		// Failures are logged by Run and never change the exit status.
		_ = rep.Run(ctx)

		return nil
	}

	return lifecycle.RunService(ctx, &lifecycle.ServiceOptions{
		ServiceName: "backupradar-agent",
		Service:     reporter.NewLoop(rep, time.Duration(cfg.CheckInterval), clock.Real(), agentLogger),
		Logger:      agentLogger,
	})
}

func runIdentity(ctx context.Context, args []string) error {
	fsFlags := flag.NewFlagSet("identity", flag.ContinueOnError)
	copyID := fsFlags.Bool("copy", false, "Also copy the identifier to the clipboard")

	if err := fsFlags.Parse(args); err != nil {
		return err
	}

	id := printIdentity(ctx, identity.NewHardwareProvider(), os.Stdout, os.Stderr)

	if *copyID {
		if err := copyToClipboard(id); err != nil {
			return fmt.Errorf("failed to copy identifier: %w", err)
		}

		fmt.Fprintln(os.Stderr, "Copied to clipboard.")
	}

	return nil
}

// printIdentity writes the machine identifier to out. Degradation
// warnings go to errOut so an operator can see why the sentinel came back.
func printIdentity(ctx context.Context, p identity.Provider, out, errOut io.Writer) string {
	id := identity.Resolve(ctx, p, logger.NewWriterLogger(errOut))
	fmt.Fprintln(out, id)

	return id
}
