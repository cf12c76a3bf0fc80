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

// Package notify publishes alert level transitions to NATS.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/models"
)

const (
	// DefaultSubjectPrefix is extended with the lowercased new level.
	DefaultSubjectPrefix = "backupradar.alerts"

	eventSource = "backupradar/dashboard"
	eventType   = "com.carverauto.backupradar.client.level"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// LevelChange is the payload of a transition event.
type LevelChange struct {
	MachineID     string            `json:"machine_id"`
	DisplayName   string            `json:"display_name"`
	PreviousLevel models.AlertLevel `json:"previous_level"`
	CurrentLevel  models.AlertLevel `json:"current_level"`
	Status        string            `json:"status"`
	ArtifactName  string            `json:"artifact_name"`
	ArtifactTime  string            `json:"artifact_time"`
}

// Event is a CloudEvents 1.0 envelope.
type Event struct {
	SpecVersion     string      `json:"specversion"`
	ID              string      `json:"id"`
	Source          string      `json:"source"`
	Type            string      `json:"type"`
	Subject         string      `json:"subject"`
	DataContentType string      `json:"datacontenttype"`
	Time            time.Time   `json:"time"`
	Data            LevelChange `json:"data"`
}

// Notifier remembers the last level of every machine and publishes one
// event per change. The first snapshot only sets the baseline.
type Notifier struct {
	publisher Publisher
	prefix    string
	logger    logger.Logger

	mu       sync.Mutex
	levels   map[string]models.AlertLevel
	baseline bool
}

func NewNotifier(p Publisher, prefix string, log logger.Logger) *Notifier {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &Notifier{
		publisher: p,
		prefix:    strings.TrimSuffix(prefix, "."),
		logger:    log,
		levels:    make(map[string]models.AlertLevel),
	}
}

// Subject returns the subject an event for level is published on.
func (n *Notifier) Subject(level models.AlertLevel) string {
	return n.prefix + "." + strings.ToLower(string(level))
}

// Observe compares statuses with the previous call and publishes the
// differences. It returns the number of events published. Publish errors
// are logged and skipped.
func (n *Notifier) Observe(statuses []models.ClientStatus, at time.Time) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	next := make(map[string]models.AlertLevel, len(statuses))
	published := 0

	for i := range statuses {
		s := &statuses[i]
		next[s.MachineID] = s.Level

		prev, known := n.levels[s.MachineID]
		if !n.baseline || (known && prev == s.Level) {
			continue
		}

		if err := n.publish(s, prev, at); err != nil {
			n.logger.Warn().Err(err).Str("machine_id", s.MachineID).Msg("Failed to publish alert transition")

			continue
		}

		published++
	}

	n.levels = next
	n.baseline = true

	return published
}

func (n *Notifier) publish(s *models.ClientStatus, prev models.AlertLevel, at time.Time) error {
	subject := n.Subject(s.Level)

	event := Event{
		SpecVersion:     "1.0",
		ID:              uuid.NewString(),
		Source:          eventSource,
		Type:            eventType,
		Subject:         subject,
		DataContentType: "application/json",
		Time:            at,
		Data: LevelChange{
			MachineID:     s.MachineID,
			DisplayName:   s.DisplayName,
			PreviousLevel: prev,
			CurrentLevel:  s.Level,
			Status:        s.Status,
			ArtifactName:  s.ArtifactName,
			ArtifactTime:  s.ArtifactLabel(),
		},
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	if err := n.publisher.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	n.logger.Info().
		Str("machine_id", s.MachineID).
		Str("previous_level", string(prev)).
		Str("current_level", string(s.Level)).
		Str("subject", subject).
		Msg("Published alert transition")

	return nil
}

// Connect dials NATS with reconnects enabled.
func Connect(url string, log logger.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("backupradar-dashboard"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

// Close drains and closes a connection made by Connect.
func Close(nc *nats.Conn) {
	if nc == nil {
		return
	}

	_ = nc.Drain()
	nc.Close()
}
