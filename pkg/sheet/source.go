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

package sheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/carverauto/backupradar/pkg/transport"
)

// DefaultFetchTimeout bounds one sheet download.
const DefaultFetchTimeout = 30 * time.Second

var (
	errMissingLocation = errors.New("sheet location is required")
	errFetchStatus     = errors.New("unexpected status code")
)

//go:generate mockgen -destination=mock_source.go -package=sheet github.com/carverauto/backupradar/pkg/sheet Source

// Source produces the full report history.
type Source interface {
	Fetch(ctx context.Context) (*Result, error)
}

// HTTPSource downloads the sheet as CSV.
type HTTPSource struct {
	url     string
	client  transport.HTTPClient
	decoder *Decoder
}

// NewHTTPSource returns a source for url. A zero timeout uses
// DefaultFetchTimeout.
func NewHTTPSource(url string, decoder *Decoder, timeout time.Duration) (*HTTPSource, error) {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	return NewHTTPSourceWithClient(url, decoder, &http.Client{Timeout: timeout})
}

// NewHTTPSourceWithClient returns a source that uses client.
func NewHTTPSourceWithClient(url string, decoder *Decoder, client transport.HTTPClient) (*HTTPSource, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errMissingLocation
	}

	if decoder == nil {
		decoder = NewDecoder(time.Local)
	}

	return &HTTPSource{url: url, client: client, decoder: decoder}, nil
}

// Fetch downloads and decodes the sheet. Transport failures are returned
// as *transport.TransportError.
func (s *HTTPSource) Fetch(ctx context.Context) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, &transport.TransportError{Op: "fetch", URL: s.url, Err: err}
	}

	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &transport.TransportError{Op: "fetch", URL: s.url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &transport.TransportError{
			Op:         "fetch",
			URL:        s.url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w, response: %s", errFetchStatus, transport.ReadErrorBody(resp.Body)),
		}
	}

	res, err := s.decoder.Decode(resp.Body)
	if err != nil {
		return nil, &transport.TransportError{Op: "fetch", URL: s.url, Err: err}
	}

	return res, nil
}

// FileSource reads a local CSV export.
type FileSource struct {
	path    string
	decoder *Decoder
}

func NewFileSource(path string, decoder *Decoder) *FileSource {
	if decoder == nil {
		decoder = NewDecoder(time.Local)
	}

	return &FileSource{path: path, decoder: decoder}
}

func (s *FileSource) Fetch(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	return s.decoder.Decode(f)
}

// NewSource picks an HTTP source for http(s) locations and a file source
// otherwise.
func NewSource(location string, decoder *Decoder, timeout time.Duration) (Source, error) {
	location = strings.TrimSpace(location)

	switch {
	case location == "":
		return nil, errMissingLocation
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPSource(location, decoder, timeout)
	default:
		return NewFileSource(strings.TrimPrefix(location, "file://"), decoder), nil
	}
}
