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

// Package transport submits report records to a web form endpoint and
// holds the HTTP plumbing shared with the dashboard's sheet fetcher.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carverauto/backupradar/pkg/models"
)

const (
	// DefaultSubmitTimeout bounds one form submission.
	DefaultSubmitTimeout = 20 * time.Second

	maxErrorBody = 512
)

// FormFields maps record attributes to the form's input names, for
// example "entry.1076243954".
type FormFields struct {
	Hash          string `json:"hash" yaml:"hash"`
	Status        string `json:"status" yaml:"status"`
	Filename      string `json:"filename" yaml:"filename"`
	FileTimestamp string `json:"file_timestamp" yaml:"file_timestamp"`
}

// Validate rejects a mapping with blank input names.
func (f *FormFields) Validate() error {
	for name, v := range map[string]string{
		"hash":           f.Hash,
		"status":         f.Status,
		"filename":       f.Filename,
		"file_timestamp": f.FileTimestamp,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", errMissingField, name)
		}
	}

	return nil
}

// Encode renders record as form values. A missing artifact time is sent
// as the N/A sentinel.
func (f *FormFields) Encode(record *models.ReportRecord) url.Values {
	data := url.Values{}
	data.Set(f.Hash, record.MachineID)
	data.Set(f.Status, record.Status)
	data.Set(f.Filename, record.ArtifactName)
	data.Set(f.FileTimestamp, models.FormatArtifactTime(record.ArtifactTime))

	return data
}

// FormTransport posts records as application/x-www-form-urlencoded.
// Any 2xx response is a success.
type FormTransport struct {
	endpoint string
	fields   FormFields
	client   HTTPClient
}

// NewFormTransport builds a transport with its own http.Client. A zero
// timeout uses DefaultSubmitTimeout.
func NewFormTransport(endpoint string, fields FormFields, timeout time.Duration) (*FormTransport, error) {
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}

	return NewFormTransportWithClient(endpoint, fields, &http.Client{Timeout: timeout})
}

// NewFormTransportWithClient builds a transport around client.
func NewFormTransportWithClient(endpoint string, fields FormFields, client HTTPClient) (*FormTransport, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errMissingEndpoint
	}

	if err := fields.Validate(); err != nil {
		return nil, err
	}

	return &FormTransport{
		endpoint: endpoint,
		fields:   fields,
		client:   client,
	}, nil
}

// Submit implements Transport.
func (t *FormTransport) Submit(ctx context.Context, record models.ReportRecord) error {
	body := t.fields.Encode(&record).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(body))
	if err != nil {
		return &TransportError{Op: "submit", URL: t.endpoint, Err: err}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return &TransportError{Op: "submit", URL: t.endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{
			Op:         "submit",
			URL:        t.endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %d, response: %s", errUnexpectedStatusCode, resp.StatusCode, ReadErrorBody(resp.Body)),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// ReadErrorBody returns a bounded prefix of a failed response body.
func ReadErrorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))

	return strings.TrimSpace(string(b))
}
