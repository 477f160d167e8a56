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
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/event"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Bridge      BridgeConfig       `yaml:"bridge"`
	Entrypoints []EntrypointConfig `yaml:"entrypoints"`
	Endpoints   []EndpointConfig   `yaml:"endpoints"`
	Routes      []RouteConfig      `yaml:"routes"`
}

// BridgeConfig holds the module settings. Configuration, when present, is
// applied as if the JavaScript side had called configure with it.
type BridgeConfig struct {
	Platform      string         `yaml:"platform"`
	FetchTimeout  time.Duration  `yaml:"fetch_timeout"`
	Configuration map[string]any `yaml:"configuration"`
}

type EntrypointConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Port        int    `yaml:"port"`
	ChannelSize int    `yaml:"channel_size"`
}

type EndpointConfig struct {
	Name   string            `yaml:"name"`
	Type   string            `yaml:"type"`
	Config map[string]string `yaml:"config"`
}

// RouteConfig limits an event channel to the named entrypoints.
type RouteConfig struct {
	Event   string   `yaml:"event"`
	Targets []string `yaml:"targets"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := ParsePlatform(c.Bridge.Platform); err != nil {
		return err
	}
	if c.Bridge.FetchTimeout < 0 {
		return fmt.Errorf("%w: negative fetch_timeout %s", core.ErrInvalidConfig, c.Bridge.FetchTimeout)
	}

	entrypoints := make(map[string]bool, len(c.Entrypoints))
	for _, ep := range c.Entrypoints {
		if ep.Name == "" {
			return fmt.Errorf("%w: entrypoint without name", core.ErrInvalidConfig)
		}
		if entrypoints[ep.Name] {
			return fmt.Errorf("%w: duplicate entrypoint %s", core.ErrInvalidConfig, ep.Name)
		}
		entrypoints[ep.Name] = true
	}

	endpoints := make(map[string]bool, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("%w: endpoint without name", core.ErrInvalidConfig)
		}
		if endpoints[ep.Name] {
			return fmt.Errorf("%w: duplicate endpoint %s", core.ErrInvalidConfig, ep.Name)
		}
		endpoints[ep.Name] = true
	}

	return ValidateRoutes(c.Routes, entrypoints)
}

// ValidateRoutes checks that each route names a known event and, when
// entrypoints is non-nil, only known entrypoints.
func ValidateRoutes(routes []RouteConfig, entrypoints map[string]bool) error {
	for _, rc := range routes {
		if _, ok := event.KindByName(rc.Event); !ok {
			return fmt.Errorf("%w: unknown event %q in route", core.ErrInvalidConfig, rc.Event)
		}
		if entrypoints == nil {
			continue
		}
		for _, target := range rc.Targets {
			if !entrypoints[target] {
				return fmt.Errorf("%w: route %s targets unknown entrypoint %s", core.ErrInvalidConfig, rc.Event, target)
			}
		}
	}
	return nil
}

// ParsePlatform defaults to Android when s is empty.
func ParsePlatform(s string) (core.Platform, error) {
	switch strings.ToLower(s) {
	case "", "android":
		return core.PlatformAndroid, nil
	case "ios":
		return core.PlatformIOS, nil
	default:
		return core.PlatformAndroid, fmt.Errorf("%w: unknown platform %q", core.ErrInvalidConfig, s)
	}
}

func (rc RouteConfig) ToRoute() *core.Route {
	return &core.Route{
		Event:   rc.Event,
		Targets: append([]string(nil), rc.Targets...),
	}
}

// ChannelSizes maps entrypoint names to their configured channel size.
func (c *Config) ChannelSizes() map[string]int {
	sizes := make(map[string]int)
	for _, ep := range c.Entrypoints {
		if ep.ChannelSize > 0 {
			sizes[ep.Name] = ep.ChannelSize
		}
	}
	return sizes
}
