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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/backupradar/pkg/transport"
)

const exportCSV = `Carimbo de data/hora,Hash,Status,Arquivo,Data do arquivo
10/06/2024 08:15:02,abc,OK,erp_dump.sql,10/06/2024 03:00:00
10/06/2024 09:00:00,def,ERRO,Nao encontrado,N/A
11/06/2024 08:00:00,abc,ok,erp_dump2.sql,11/06/2024 03:00:00,Front desk,extra
`

func TestSchemaMapByPosition(t *testing.T) {
	s := Schema{
		{Field: FieldSubmittedAt},
		{Field: FieldMachineID},
		{Field: FieldDisplayName, Fallback: "n/a"},
	}

	got := s.Map([]string{"t", "id", "name", "ignored"})
	assert.Equal(t, "name", got[FieldDisplayName])
	assert.Len(t, got, 3)

	got = s.Map([]string{"t"})
	assert.Equal(t, "", got[FieldMachineID])
	assert.Equal(t, "n/a", got[FieldDisplayName])

	assert.Equal(t, "machine_id", FieldMachineID.String())
	assert.Equal(t, "unknown", Field(99).String())
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)

	ts, err := ParseTimestamp("10/06/2024 03:04:05", nil, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 10, 3, 4, 5, 0, loc), *ts)

	ts, err = ParseTimestamp("2024-06-10", nil, loc)
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Day())

	ts, err = ParseTimestamp(" N/A ", nil, loc)
	require.NoError(t, err)
	assert.Nil(t, ts)

	ts, err = ParseTimestamp("", nil, loc)
	require.NoError(t, err)
	assert.Nil(t, ts)

	_, err = ParseTimestamp("yesterday", nil, loc)
	require.ErrorIs(t, err, errUnparseableTimestamp)

	_, err = ParseTimestamp("31/02/2024", nil, loc)
	require.Error(t, err)
}

func TestParseTimestampDateOrders(t *testing.T) {
	dmy, err := LayoutsFor("")
	require.NoError(t, err)

	mdy, err := LayoutsFor(" MDY ")
	require.NoError(t, err)

	tests := []struct {
		name    string
		value   string
		layouts []string
		want    time.Time
	}{
		{"day first padded", "05/03/2026 09:05:00", dmy, time.Date(2026, time.March, 5, 9, 5, 0, 0, time.UTC)},
		{"day first unpadded", "5/3/2026 9:05:00", dmy, time.Date(2026, time.March, 5, 9, 5, 0, 0, time.UTC)},
		{"day first no seconds", "5/3/2026 9:05", dmy, time.Date(2026, time.March, 5, 9, 5, 0, 0, time.UTC)},
		{"month first", "10/14/2026 9:05:00", mdy, time.Date(2026, time.October, 14, 9, 5, 0, 0, time.UTC)},
		{"month first padded", "03/05/2026 09:05:00", mdy, time.Date(2026, time.March, 5, 9, 5, 0, 0, time.UTC)},
		{"month first twelve hour", "10/14/2026 9:05:00 PM", mdy, time.Date(2026, time.October, 14, 21, 5, 0, 0, time.UTC)},
		{"month first date only", "10/14/2026", mdy, time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)},
		{"iso under month first", "2026-10-14 09:05:00", mdy, time.Date(2026, time.October, 14, 9, 5, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := ParseTimestamp(tt.value, tt.layouts, time.UTC)
			require.NoError(t, err)
			require.NotNil(t, ts)
			assert.Equal(t, tt.want, *ts)
		})
	}

	_, err = ParseTimestamp("10/14/2026 9:05:00", dmy, time.UTC)
	require.ErrorIs(t, err, errUnparseableTimestamp)

	_, err = LayoutsFor("ymd")
	require.ErrorIs(t, err, ErrUnknownDateOrder)
}

func TestDecodeExport(t *testing.T) {
	res, err := NewDecoder(time.UTC).Decode(strings.NewReader(exportCSV))
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Zero(t, res.Skipped)

	first := res.Records[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "abc", first.MachineID)
	require.NotNil(t, first.SubmittedAt)
	assert.Equal(t, time.Date(2024, time.June, 10, 8, 15, 2, 0, time.UTC), *first.SubmittedAt)
	require.NotNil(t, first.ArtifactTime)
	assert.Empty(t, first.DisplayName)

	missing := res.Records[1]
	assert.Nil(t, missing.ArtifactTime)
	assert.Equal(t, "N/A", missing.ArtifactRaw)

	last := res.Records[2]
	assert.Equal(t, "Front desk", last.DisplayName)
	assert.Equal(t, "ok", last.Status)
}

func TestDecodeShortRowsAndGarbage(t *testing.T) {
	input := "10/06/2024 08:00:00,abc\n" +
		"not a date,def,OK,dump.bak,garbage\n" +
		",,,\n"

	d := NewDecoder(time.UTC)
	d.HasHeader = false

	res, err := d.Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	short := res.Records[0]
	assert.Equal(t, 1, short.Row)
	assert.Empty(t, short.Status)
	assert.Nil(t, short.ArtifactTime)

	garbage := res.Records[1]
	assert.Nil(t, garbage.SubmittedAt)
	assert.Equal(t, "not a date", garbage.SubmittedRaw)
	assert.Nil(t, garbage.ArtifactTime)
}

func TestDecodeSkipsMalformedRows(t *testing.T) {
	input := "header\n" +
		"10/06/2024 08:00:00,,OK,dump.bak,10/06/2024 03:00:00\n" +
		"10/06/2024 08:00:00,a\"b,OK\n" +
		"10/06/2024 08:00:00,good,OK,dump.bak,10/06/2024 03:00:00\n"

	res, err := NewDecoder(time.UTC).Decode(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, "good", res.Records[0].MachineID)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Errors, 2)

	for _, e := range res.Errors {
		require.ErrorIs(t, e, ErrMalformedRecord)

		var rowErr *RowError
		require.True(t, errors.As(e, &rowErr))
	}
}

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(exportCSV))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL, NewDecoder(time.UTC), 0)
	require.NoError(t, err)

	res, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
}

func TestHTTPSourceNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "sheet not published", http.StatusNotFound)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL, nil, time.Second)
	require.NoError(t, err)

	_, err = src.Fetch(context.Background())
	require.Error(t, err)

	var te *transport.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "fetch", te.Op)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	require.ErrorIs(t, err, errFetchStatus)
	assert.Contains(t, err.Error(), "sheet not published")
}

func TestHTTPSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src, err := NewHTTPSource(url, nil, time.Second)
	require.NoError(t, err)

	_, err = src.Fetch(context.Background())
	assert.True(t, transport.IsTransportError(err))
}

func TestNewSource(t *testing.T) {
	_, err := NewSource(" ", nil, 0)
	require.ErrorIs(t, err, errMissingLocation)

	src, err := NewSource("https://docs.example.test/pub?output=csv", nil, 0)
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportCSV), 0o600))

	src, err = NewSource("file://"+path, NewDecoder(time.UTC), 0)
	require.NoError(t, err)
	require.IsType(t, &FileSource{}, src)

	res, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "gone.csv"), nil).Fetch(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}
