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
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/carverauto/backupradar/pkg/reporter"
)

var errNoInput = errors.New("no input")

func runInstall(args []string) error {
	var settings reporter.InstallSettings

	fsFlags := flag.NewFlagSet("install", flag.ContinueOnError)
	configPath := fsFlags.String("config", reporter.DefaultConfigPath(), "Path to agent config file")
	fsFlags.StringVar(&settings.BackupDir, "dir", "", "Backup directory to monitor (prompted when empty)")
	fsFlags.StringVar(&settings.FormURL, "form-url", "", "Form submission URL (prompted when not configured)")
	fsFlags.StringVar(&settings.FormFields.Hash, "field-hash", "", "Form input name for the machine id, e.g. entry.123")
	fsFlags.StringVar(&settings.FormFields.Status, "field-status", "", "Form input name for the status")
	fsFlags.StringVar(&settings.FormFields.Filename, "field-filename", "", "Form input name for the artifact name")
	fsFlags.StringVar(&settings.FormFields.FileTimestamp, "field-timestamp", "", "Form input name for the artifact timestamp")

	if err := fsFlags.Parse(args); err != nil {
		return err
	}

	return install(*configPath, settings, os.Stdin, os.Stdout)
}

// install writes the agent config, prompting on in for the backup
// directory when it was not given and for any form setting neither the
// flags nor the existing config provide.
func install(configPath string, settings reporter.InstallSettings, in io.Reader, out io.Writer) error {
	existing, err := reporter.ReadInstalled(configPath)
	if err != nil {
		return err
	}

	known := settings.Merge(existing)
	reader := bufio.NewReader(in)

	prompts := []struct {
		label string
		have  string
		dst   *string
	}{
		{"Backup directory to monitor", settings.BackupDir, &settings.BackupDir},
		{"Form submission URL", known.FormURL, &settings.FormURL},
		{"Form input for the machine id", known.FormFields.Hash, &settings.FormFields.Hash},
		{"Form input for the status", known.FormFields.Status, &settings.FormFields.Status},
		{"Form input for the artifact name", known.FormFields.Filename, &settings.FormFields.Filename},
		{"Form input for the artifact timestamp", known.FormFields.FileTimestamp, &settings.FormFields.FileTimestamp},
	}

	for _, p := range prompts {
		if strings.TrimSpace(p.have) != "" {
			continue
		}

		value, err := prompt(reader, out, p.label)
		if err != nil {
			return err
		}

		*p.dst = value
	}

	settings.BackupDir, err = reporter.CleanBackupDir(settings.BackupDir)
	if err != nil {
		return fmt.Errorf("invalid backup directory: %w", err)
	}

	if err := reporter.WriteInstall(configPath, settings); err != nil {
		return err
	}

	fmt.Fprintf(out, "Monitoring %s, config written to %s\n", settings.BackupDir, configPath)

	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)

	// A final line without a newline still counts.
	line, _ := reader.ReadString('\n')

	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), errNoInput)
	}

	return line, nil
}

func copyToClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard not available on this system")
	}

	return clipboard.WriteAll(text)
}
