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

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/dispatch"
	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/logging"
	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/native"
	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/routing"
	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/session"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/bridge"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/config"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/marshal"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins/httpget"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins/httppost"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins/jms"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins/kafka"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins/mqtt5"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins/rabbitmq"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins/solace"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins/sse"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/plugins/ws"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/sdkconfig"
)

const inboundBuffer = 256

func main() {
	// A missing .env file is fine, the environment may already be set.
	_ = godotenv.Load()

	level := new(slog.LevelVar)
	level.Set(parseLevel(os.Getenv("LOG_LEVEL")))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	platform, _ := config.ParsePlatform(cfg.Bridge.Platform)

	eventLog := logging.NewEventLogger(logger.With("component", "event"))
	registry := plugins.NewRegistry(logger)

	registerEntrypoints(cfg, registry, logger)
	registerEndpoints(cfg, registry, logger)

	routeTable := routing.NewTable()
	for _, rc := range cfg.Routes {
		routeTable.Add(rc.ToRoute())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n := registry.ConnectEndpoints(ctx); n == 0 && len(cfg.Endpoints) > 0 {
		logger.Error("no native endpoint could be connected")
		os.Exit(1)
	}

	mgr := session.NewManager(routeTable, logger)
	for name, size := range cfg.ChannelSizes() {
		mgr.SetChannelSize(name, size)
	}

	gateway := dispatch.NewGateway(mgr, logger.With("component", "dispatch"), eventLog)
	mgr.SetActivationHook(func() { gateway.Resume() })

	relay := native.NewRelay(registry, cfg.Bridge.FetchTimeout, logger.With("component", "relay"), eventLog)
	module := bridge.NewModule(relay, gateway, logger.With("component", "bridge"), bridge.Options{
		Platform: platform,
		LevelVar: level,
	})
	mgr.SetInvoker(module)

	inbound := make(chan core.BrokerMessage, inboundBuffer)
	ingestor := native.NewIngestor(relay, module, logger.With("component", "ingestor"), eventLog)
	go ingestor.Run(ctx, inbound)
	consumers := registry.StartConsumers(ctx, inbound)

	if cfg.Bridge.Configuration != nil {
		if err := autoConfigure(ctx, module, cfg.Bridge.Configuration); err != nil {
			logger.Error("startup configuration rejected", "error", err)
			os.Exit(1)
		}
	}

	watcher := config.NewWatcher(configPath, routeTable, logger)
	go watcher.Watch(ctx)

	registry.StartEntrypoints(ctx, mgr)

	logger.Info("engagement bridge started", "config", configPath, "platform", platform.String(), "methods", len(module.Methods()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down engagement bridge")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	mgr.DestroyAll()
	registry.StopAll(shutdownCtx)
	consumers.Wait()

	logger.Info("engagement bridge stopped")
}

func autoConfigure(ctx context.Context, module *bridge.Module, raw map[string]any) error {
	normalized, err := marshal.NormalizeMap(raw)
	if err != nil {
		return err
	}
	parsed, err := sdkconfig.Parse(normalized)
	if err != nil {
		return err
	}
	return module.Configure(ctx, parsed)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func registerEntrypoints(cfg *config.Config, reg *plugins.Registry, logger *slog.Logger) {
	for _, e := range cfg.Entrypoints {
		switch e.Type {
		case "websocket":
			reg.RegisterEntrypoint(ws.New(e.Name, e.Port, logger))
		case "sse":
			reg.RegisterEntrypoint(sse.New(e.Name, e.Port, logger))
		case "http_post":
			reg.RegisterEntrypoint(httppost.New(e.Name, e.Port, logger))
		case "http_get":
			reg.RegisterEntrypoint(httpget.New(e.Name, e.Port, logger))
		default:
			logger.Warn("unknown entrypoint type", "name", e.Name, "type", e.Type)
		}
	}
}

func registerEndpoints(cfg *config.Config, reg *plugins.Registry, logger *slog.Logger) {
	for _, e := range cfg.Endpoints {
		switch e.Type {
		case "kafka":
			brokers := strings.Split(e.Config["brokers"], ",")
			reg.RegisterEndpoint(kafka.New(
				e.Name, brokers,
				e.Config["topic_in"], e.Config["topic_out"],
				e.Config["group_id"],
				logger,
			))
		case "rabbitmq":
			reg.RegisterEndpoint(rabbitmq.New(
				e.Name,
				e.Config["url"],
				e.Config["queue_in"], e.Config["queue_out"],
				logger,
			))
		case "mqtt5":
			reg.RegisterEndpoint(mqtt5.New(
				e.Name,
				e.Config["url"],
				e.Config["topic_in"], e.Config["topic_out"],
				logger,
			))
		case "jms":
			reg.RegisterEndpoint(jms.New(
				e.Name,
				e.Config["url"],
				e.Config["queue_in"], e.Config["queue_out"],
				logger,
			))
		case "solace":
			reg.RegisterEndpoint(solace.New(
				e.Name,
				e.Config["host"], e.Config["vpn"],
				e.Config["username"], e.Config["password"],
				e.Config["topic_in"], e.Config["topic_out"],
				logger,
			))
		default:
			logger.Warn("unknown endpoint type", "name", e.Name, "type", e.Type)
		}
	}
}
