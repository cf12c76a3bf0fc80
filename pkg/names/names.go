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

// Package names maps machine identities to operator-facing labels.
package names

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/backupradar/pkg/models"
)

var errEmptyMappingPath = errors.New("mapping file path is empty")

// Lookup is one source of display names.
type Lookup interface {
	Lookup(machineID string) (string, bool)
}

// Table is a static in-memory mapping.
type Table map[string]string

// Lookup implements Lookup. Blank labels count as absent.
func (t Table) Lookup(machineID string) (string, bool) {
	name, ok := t[machineID]
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}

	return strings.TrimSpace(name), true
}

// LoadFile reads a mapping file. Files ending in .yaml, .yml or .json hold
// a single map from id to name; anything else is read as two-column CSV
// (hash,name) where lines starting with # and rows with fewer than two
// columns are ignored.
func LoadFile(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errEmptyMappingPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping file: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(f)
	case ".json":
		return decodeJSON(f)
	default:
		return decodeCSV(f)
	}
}

func decodeYAML(r io.Reader) (Table, error) {
	t := Table{}

	if err := yaml.NewDecoder(r).Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse mapping file: %w", err)
	}

	return t, nil
}

func decodeJSON(r io.Reader) (Table, error) {
	t := Table{}

	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("parse mapping file: %w", err)
	}

	return t, nil
}

func decodeCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	t := Table{}
	first := true

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("parse mapping file: %w", err)
		}

		header := first
		first = false

		if len(row) < 2 {
			continue
		}

		id, name := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if id == "" || name == "" || (header && strings.EqualFold(id, "hash")) {
			continue
		}

		t[id] = name
	}

	return t, nil
}

// Resolver walks its sources in order.
type Resolver struct {
	sources []Lookup
}

// NewResolver returns a resolver over sources, skipping nil ones.
func NewResolver(sources ...Lookup) *Resolver {
	r := &Resolver{}

	for _, s := range sources {
		if s != nil {
			r.sources = append(r.sources, s)
		}
	}

	return r
}

// Configured reports whether any mapping source is present.
func (r *Resolver) Configured() bool {
	return len(r.sources) > 0
}

// Resolve returns the first label found. Without mapping sources the raw
// id is shown; with sources, a miss resolves to the unknown sentinel.
func (r *Resolver) Resolve(machineID string) string {
	for _, s := range r.sources {
		if name, ok := s.Lookup(machineID); ok {
			return name
		}
	}

	if !r.Configured() && machineID != "" {
		return machineID
	}

	return models.UnknownName
}
