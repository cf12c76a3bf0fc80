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

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestIsHealthyStatus(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"OK", true},
		{" OK ", true},
		{"ok", true},
		{"ERRO", false},
		{"", false},
		{"OKAY", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, IsHealthyStatus(tc.in), "status %q", tc.in)
	}
}

func TestFormatArtifactTime(t *testing.T) {
	assert.Equal(t, ArtifactTimeMissing, FormatArtifactTime(nil))

	ts := time.Date(2024, time.May, 3, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "03/05/2024 09:05:07", FormatArtifactTime(&ts))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]ClientStatus{
		{Level: AlertOK},
		{Level: AlertOK},
		{Level: AlertPending},
		{Level: AlertCritical},
		{Level: "bogus"},
	})

	assert.Equal(t, Summary{Total: 5, OK: 2, Pending: 1, Critical: 2}, s)
}

func TestAlertLevelRank(t *testing.T) {
	assert.Less(t, AlertCritical.Rank(), AlertPending.Rank())
	assert.Less(t, AlertPending.Rank(), AlertOK.Rank())
}

func TestDurationUnmarshal(t *testing.T) {
	var cfg struct {
		Interval Duration `json:"interval" yaml:"interval"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"interval":"90s"}`), &cfg))
	assert.Equal(t, Duration(90*time.Second), cfg.Interval)

	require.NoError(t, json.Unmarshal([]byte(`{"interval":1000000000}`), &cfg))
	assert.Equal(t, Duration(time.Second), cfg.Interval)

	require.Error(t, json.Unmarshal([]byte(`{"interval":"soon"}`), &cfg))
	require.Error(t, json.Unmarshal([]byte(`{"interval":true}`), &cfg))

	require.NoError(t, yaml.Unmarshal([]byte("interval: 5m\n"), &cfg))
	assert.Equal(t, Duration(5*time.Minute), cfg.Interval)

	out, err := json.Marshal(Duration(time.Hour))
	require.NoError(t, err)
	assert.JSONEq(t, `"1h0m0s"`, string(out))
}
