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

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/model"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/sdkconfig"
)

const DefaultFlushPeriod = 60.0

type handler func(ctx context.Context, args marshal.Args) (any, error)

type Options struct {
	Platform core.Platform
	// LevelVar, when set, follows the SDK log level.
	LevelVar *slog.LevelVar
}

type Module struct {
	sdk      SDK
	events   EventSink
	logger   *slog.Logger
	platform core.Platform
	levelVar *slog.LevelVar
	methods  map[string]handler

	// configured turns true only after the SDK accepted the configuration.
	// configureMu serializes configure attempts.
	configureMu sync.Mutex
	configured  atomic.Bool

	mu                sync.RWMutex
	configuration     *sdkconfig.Configuration
	flushMode         sdkconfig.FlushMode
	flushPeriod       float64
	logLevel          sdkconfig.LogLevel
	defaultProperties map[string]any

	segmentation sync.Map
}

func NewModule(sdk SDK, events EventSink, logger *slog.Logger, opts Options) *Module {
	m := &Module{
		sdk:               sdk,
		events:            events,
		logger:            logger,
		platform:          opts.Platform,
		levelVar:          opts.LevelVar,
		flushMode:         sdkconfig.FlushImmediate,
		flushPeriod:       DefaultFlushPeriod,
		logLevel:          sdkconfig.LogInfo,
		defaultProperties: map[string]any{},
	}
	m.methods = m.register()
	return m
}

func (m *Module) Platform() core.Platform { return m.platform }

func (m *Module) IsConfigured() bool { return m.configured.Load() }

// Methods lists the supported call names.
func (m *Module) Methods() []string {
	names := make([]string, 0, len(m.methods))
	for name := range m.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke resolves or rejects a call exactly once.
func (m *Module) Invoke(ctx context.Context, call core.Call) (result core.Result) {
	result.ID = call.ID
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("call panic recovered", "method", call.Method, "error", r)
			result.Value = nil
			result.Error = core.Reject(fmt.Errorf("Error: %v", r))
		}
	}()

	h, ok := m.methods[call.Method]
	if !ok {
		result.Error = core.Reject(core.Errorf(core.ErrUnknownMethod, "Method %s is not supported.", call.Method))
		return result
	}

	value, err := h(ctx, marshal.Args(call.Args))
	if err != nil {
		m.logger.Debug("call rejected", "method", call.Method, "error", err)
		result.Error = core.Reject(err)
		return result
	}
	result.Value = value
	return result
}

// Configure applies a parsed configuration once.
func (m *Module) Configure(ctx context.Context, cfg *sdkconfig.Configuration) error {
	m.configureMu.Lock()
	defer m.configureMu.Unlock()

	if m.configured.Load() {
		return core.ErrAlreadyConfigured
	}
	if err := m.sdk.Configure(ctx, cfg); err != nil {
		return err
	}

	m.mu.Lock()
	m.configuration = cfg
	m.logLevel = cfg.LogLevel
	if cfg.DefaultProperties != nil {
		m.defaultProperties = cfg.DefaultProperties
	}
	m.mu.Unlock()
	m.applyLogLevel(cfg.LogLevel)
	m.configured.Store(true)

	m.logger.Info("sdk configured",
		"base_url", cfg.BaseURL,
		"application_id", cfg.ApplicationID,
		"platform", m.platform.String(),
	)
	return nil
}

func (m *Module) applyLogLevel(level sdkconfig.LogLevel) {
	if m.levelVar != nil {
		m.levelVar.Set(level.SlogLevel())
	}
}

func (m *Module) baseURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.configuration == nil {
		return sdkconfig.DefaultBaseURL
	}
	return m.configuration.BaseURL
}

func (m *Module) requireConfigured(h handler) handler {
	return func(ctx context.Context, args marshal.Args) (any, error) {
		if !m.configured.Load() {
			return nil, core.ErrNotConfigured
		}
		return h(ctx, args)
	}
}

func (m *Module) only(platform core.Platform, operation string, h handler) handler {
	return func(ctx context.Context, args marshal.Args) (any, error) {
		if m.platform != platform {
			return nil, core.Unavailable(operation, m.platform)
		}
		return h(ctx, args)
	}
}

// execute sends a command and resolves with nothing.
func (m *Module) execute(ctx context.Context, name string, args map[string]any) (any, error) {
	if err := m.sdk.Execute(ctx, Command{Name: name, Args: args}); err != nil {
		return nil, err
	}
	return nil, nil
}

// fetchText runs a fetch and renders its reply as JSON text.
func (m *Module) fetchText(ctx context.Context, name string, args map[string]any) (any, error) {
	reply, err := m.sdk.Fetch(ctx, Command{Name: name, Args: args})
	if err != nil {
		return nil, fetchError(err)
	}
	return marshal.EncodeText(reply)
}

func fetchError(err error) error {
	var e *core.Error
	if errors.As(err, &e) {
		return err
	}
	return core.FetchFailed(err.Error())
}

func (m *Module) segmentationCallback(id string) (model.SegmentationCallback, bool) {
	v, ok := m.segmentation.Load(id)
	if !ok {
		return model.SegmentationCallback{}, false
	}
	return v.(model.SegmentationCallback), true
}
