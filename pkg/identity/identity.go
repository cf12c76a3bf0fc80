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

//go:generate mockgen -destination=mock_identity.go -package=identity github.com/carverauto/backupradar/pkg/identity Provider

// Package identity derives the stable machine fingerprint that keys every
// report in the log.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/models"
)

var (
	// ErrIdentityUnavailable is returned when the host UUID cannot be read.
	ErrIdentityUnavailable = errors.New("machine identity unavailable")

	errEmptyHostID = errors.New("empty host uuid")
)

// Provider yields the machine identifier for this host.
type Provider interface {
	ID(ctx context.Context) (string, error)
}

// Components are the hardware facts that feed the fingerprint.
type Components struct {
	HostUUID   string `json:"host_uuid"`
	DiskSerial string `json:"disk_serial"`
	MAC        string `json:"mac"`
}

// Hash returns the lowercase hex SHA-256 of the canonical component string.
func (c Components) Hash() string {
	return Hash(c.HostUUID, c.DiskSerial, c.MAC)
}

// Hash fingerprints the three hardware components. The input layout is
// fixed; changing it would orphan every machine already in the log.
func Hash(hostUUID, diskSerial, mac string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("UUID:%s-DISK:%s-MAC:%s", hostUUID, diskSerial, mac)))

	return hex.EncodeToString(sum[:])
}

// HardwareProvider reads the host UUID, the first disk serial and the
// first physical MAC address through gopsutil. Only the host UUID is
// mandatory; the disk serial and MAC are empty when the platform does not
// expose them.
type HardwareProvider struct {
	hostID     func(ctx context.Context) (string, error)
	diskSerial func(ctx context.Context) (string, error)
	macAddress func(ctx context.Context) (string, error)
}

func NewHardwareProvider() *HardwareProvider {
	return &HardwareProvider{
		hostID:     host.HostIDWithContext,
		diskSerial: firstDiskSerial,
		macAddress: firstMACAddress,
	}
}

// Collect gathers the raw components.
func (p *HardwareProvider) Collect(ctx context.Context) (Components, error) {
	var c Components

	id, err := p.hostID(ctx)
	if err != nil {
		return c, fmt.Errorf("%w: %w", ErrIdentityUnavailable, err)
	}

	c.HostUUID = strings.TrimSpace(id)
	if c.HostUUID == "" {
		return c, fmt.Errorf("%w: %w", ErrIdentityUnavailable, errEmptyHostID)
	}

	if serial, err := p.diskSerial(ctx); err == nil {
		c.DiskSerial = strings.TrimSpace(serial)
	}

	if mac, err := p.macAddress(ctx); err == nil {
		c.MAC = strings.ToUpper(strings.TrimSpace(mac))
	}

	return c, nil
}

// ID implements Provider.
func (p *HardwareProvider) ID(ctx context.Context) (string, error) {
	c, err := p.Collect(ctx)
	if err != nil {
		return "", err
	}

	return c.Hash(), nil
}

// Resolve returns the provider's identifier, or the unknown-identity
// sentinel when it fails. The failure is logged, never returned.
func Resolve(ctx context.Context, p Provider, log logger.Logger) string {
	id, err := p.ID(ctx)
	if err != nil || id == "" {
		log.Warn().Err(err).Str("machine_id", models.UnknownIdentity).Msg("Machine identity unavailable, using sentinel")

		return models.UnknownIdentity
	}

	return id
}

func firstDiskSerial(ctx context.Context) (string, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return "", err
	}

	devices := make([]string, 0, len(partitions))
	for _, p := range partitions {
		devices = append(devices, p.Device)
	}

	sort.Strings(devices)

	for _, dev := range devices {
		serial, err := disk.SerialNumberWithContext(ctx, dev)
		if err == nil && strings.TrimSpace(serial) != "" {
			return serial, nil
		}
	}

	return "", nil
}

func firstMACAddress(ctx context.Context) (string, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return "", err
	}

	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Index < ifaces[j].Index })

	for _, iface := range ifaces {
		if iface.HardwareAddr == "" || hasFlag(iface.Flags, "loopback") || !hasFlag(iface.Flags, "up") {
			continue
		}

		return iface.HardwareAddr, nil
	}

	return "", nil
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, want) {
			return true
		}
	}

	return false
}
