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

package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/carverauto/backupradar/pkg/aggregator"
	"github.com/carverauto/backupradar/pkg/clock"
	brhttp "github.com/carverauto/backupradar/pkg/http"
	"github.com/carverauto/backupradar/pkg/logger"
	"github.com/carverauto/backupradar/pkg/metrics"
	"github.com/carverauto/backupradar/pkg/models"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"levelClass": func(l models.AlertLevel) string {
		switch l {
		case models.AlertOK:
			return "ok"
		case models.AlertPending:
			return "pending"
		default:
			return "critical"
		}
	},
	"shortID": ShortID,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>BackupRadar</title>
<style>
body { font-family: sans-serif; background: #282A36; color: #F8F8F2; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { padding: .4em .8em; border-bottom: 1px solid #44475A; text-align: left; }
th { color: #FF79C6; }
tr.ok td { color: #50FA7B; }
tr.pending td { color: #F1FA8C; }
tr.critical td { color: #FF5555; }
.banner { background: #FF5555; color: #F8F8F2; padding: .5em 1em; }
.muted { color: #6272A4; }
.counts span { margin-right: 1.5em; font-weight: bold; }
</style>
</head>
<body>
<h1>BackupRadar</h1>
{{if .Err}}<p class="banner">{{.StatusLine}}</p>{{else}}<p class="muted">{{.StatusLine}}</p>{{end}}
<form method="get" action="/"><input type="search" name="q" value="{{.Query}}" placeholder="filter by name or id"> <button type="submit">Filter</button></form>
<form method="post" action="/refresh"><input type="hidden" name="q" value="{{.Query}}"><button type="submit">Refresh</button></form>
{{with .Snapshot}}
<p class="counts"><span>Total {{.Summary.Total}}</span><span class="ok">OK {{.Summary.OK}}</span><span class="pending">PENDING {{.Summary.Pending}}</span><span class="critical">CRITICAL {{.Summary.Critical}}</span>{{if .Skipped}}<span class="muted">skipped rows {{.Skipped}}</span>{{end}}</p>
{{end}}
{{if .Rows}}
<table>
<tr><th>Level</th><th>Client</th><th>Machine ID</th><th>Status</th><th>Artifact</th><th>Artifact time</th></tr>
{{range .Rows}}<tr class="{{levelClass .Level}}"><td>{{.Level}}</td><td>{{.DisplayName}}</td><td title="{{.MachineID}}">{{shortID .MachineID}}</td><td>{{.Status}}</td><td>{{.ArtifactName}}</td><td>{{.ArtifactLabel}}</td></tr>
{{end}}</table>
{{else if .Snapshot}}<p class="muted">No clients match the filter.</p>{{end}}
</body>
</html>
`))

type pageData struct {
	Snapshot   *aggregator.Snapshot
	Rows       []models.ClientStatus
	Query      string
	Err        error
	StatusLine string
}

// apiStatus is the JSON body of /api/status.
type apiStatus struct {
	Statuses  []models.ClientStatus `json:"statuses"`
	Summary   models.Summary        `json:"summary"`
	Skipped   int                   `json:"skipped"`
	Policy    string                `json:"policy,omitempty"`
	FetchedAt *time.Time            `json:"fetched_at,omitempty"`
	Stale     bool                  `json:"stale"`
	Error     string                `json:"error,omitempty"`
}

// WebServer serves the HTML view, the JSON API and metrics. It implements
// lifecycle.Service.
type WebServer struct {
	addr    string
	viewer  Viewer
	metrics *metrics.Recorder
	clock   clock.Clock
	logger  logger.Logger

	mu     sync.Mutex
	server *http.Server
}

func NewWebServer(addr string, viewer Viewer, rec *metrics.Recorder, log logger.Logger) *WebServer {
	if rec == nil {
		rec = metrics.NewRecorder()
	}

	return &WebServer{
		addr:    addr,
		viewer:  viewer,
		metrics: rec,
		clock:   clock.Real(),
		logger:  log,
	}
}

// Handler returns the routed handler.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return brhttp.RequestLogger(s.logger)(brhttp.NoCache(mux))
}

func (s *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := s.viewer.Current(r.Context())
	query := r.URL.Query().Get("q")

	data := pageData{
		Query:      query,
		Err:        v.Err,
		StatusLine: StatusLine(&v, s.clock.Now()),
	}

	if v.Snapshot != nil {
		data.Snapshot = v.Snapshot
		data.Rows = Rows(v.Snapshot.Statuses, query)
	}

	status := http.StatusOK
	if v.Snapshot == nil && v.Err != nil {
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render dashboard page")
	}
}

func (s *WebServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.viewer.Refresh(r.Context())

	target := "/"
	if q := r.FormValue("q"); q != "" {
		target = "/?q=" + url.QueryEscape(q)
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := s.viewer.Current(r.Context())

	body := apiStatus{Statuses: []models.ClientStatus{}, Stale: v.Stale}

	if v.Err != nil {
		body.Error = v.Err.Error()
	}

	if v.Snapshot != nil {
		fetched := v.FetchedAt
		body.Statuses = Rows(v.Snapshot.Statuses, r.URL.Query().Get("q"))
		body.Summary = v.Snapshot.Summary
		body.Skipped = v.Snapshot.Skipped
		body.Policy = v.Snapshot.Policy
		body.FetchedAt = &fetched
	}

	status := http.StatusOK
	if v.Snapshot == nil && v.Err != nil {
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode status response")
	}
}

// Start listens on the configured address and serves until Stop.
func (s *WebServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	return s.Serve(ln)
}

// Serve serves on ln until Stop.
func (s *WebServer) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Dashboard web server listening")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// Stop implements the lifecycle.Service interface.
func (s *WebServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}
