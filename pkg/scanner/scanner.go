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

// Package scanner finds the most recently created backup artifact in a
// directory.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// DefaultSearchTerm matches the dump files produced by the backup jobs.
const DefaultSearchTerm = "dump"

var (
	// ErrDirectoryNotFound is returned when the backup directory is missing
	// or is not a directory.
	ErrDirectoryNotFound = errors.New("backup directory not found")

	errScanFailed = errors.New("failed to scan backup directory")
)

// Artifact is a matching backup file.
type Artifact struct {
	Name      string
	Path      string
	CreatedAt time.Time
	Size      int64
}

// Scanner selects files whose lowercased name contains SearchTerm.
// Subdirectories are not descended into.
type Scanner struct {
	searchTerm string
	createdAt  func(path string, info fs.FileInfo) time.Time
}

// New returns a Scanner for term. An empty term uses DefaultSearchTerm.
func New(term string) *Scanner {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		term = DefaultSearchTerm
	}

	return &Scanner{
		searchTerm: term,
		createdAt:  creationTime,
	}
}

// SearchTerm returns the normalized match term.
func (s *Scanner) SearchTerm() string {
	return s.searchTerm
}

// Matches reports whether a file name is a candidate artifact.
func (s *Scanner) Matches(name string) bool {
	return strings.Contains(strings.ToLower(name), s.searchTerm)
}

// Latest returns the matching regular file with the greatest creation
// time, or nil when nothing matches. On equal timestamps the entry seen
// last in directory order wins.
func (s *Scanner) Latest(dir string) (*Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}

		return nil, fmt.Errorf("%w: %w", errScanFailed, err)
	}

	var latest *Artifact

	for _, entry := range entries {
		if !entry.Type().IsRegular() || !s.Matches(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}

		path := filepath.Join(dir, entry.Name())
		created := s.createdAt(path, info)

		if latest == nil || !created.Before(latest.CreatedAt) {
			latest = &Artifact{
				Name:      entry.Name(),
				Path:      path,
				CreatedAt: created,
				Size:      info.Size(),
			}
		}
	}

	return latest, nil
}
