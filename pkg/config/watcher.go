// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package config

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/routing"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

const DefaultWatchInterval = 5 * time.Second

// Watcher reloads event routes when the config file changes. Other sections
// need a restart, a change to them is only logged.
type Watcher struct {
	path     string
	table    *routing.Table
	interval time.Duration
	logger   *slog.Logger
	lastMod  time.Time
	platform string
	timeout  time.Duration
}

func NewWatcher(path string, table *routing.Table, logger *slog.Logger) *Watcher {
	w := &Watcher{
		path:     path,
		table:    table,
		interval: DefaultWatchInterval,
		logger:   logger,
	}
	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}
	if cfg, err := Load(path); err == nil {
		w.platform = cfg.Bridge.Platform
		w.timeout = cfg.Bridge.FetchTimeout
	}
	return w
}

func (w *Watcher) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

func (w *Watcher) Watch(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check reloads routes if the file changed since the last successful look.
// It reports whether the table was replaced.
func (w *Watcher) Check() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("config stat failed", "path", w.path, "error", err)
		return false
	}
	if !info.ModTime().After(w.lastMod) {
		return false
	}
	w.lastMod = info.ModTime()

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed", "path", w.path, "error", err)
		return false
	}

	if cfg.Bridge.Platform != w.platform || cfg.Bridge.FetchTimeout != w.timeout {
		w.logger.Warn("bridge settings changed, restart to apply",
			"platform", cfg.Bridge.Platform,
			"fetch_timeout", cfg.Bridge.FetchTimeout,
		)
	}

	routes := make([]*core.Route, 0, len(cfg.Routes))
	for _, rc := range cfg.Routes {
		routes = append(routes, rc.ToRoute())
	}
	w.table.ReplaceAll(routes)
	w.logger.Info("routes reloaded", "count", len(routes))
	return true
}
