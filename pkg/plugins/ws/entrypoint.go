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

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

// Entrypoint is a bidirectional listener channel. The JavaScript runtime
// sends calls as JSON text messages and receives result and event frames.
type Entrypoint struct {
	name     string
	port     int
	upgrader websocket.Upgrader
	manager  core.SessionManager
	server   *http.Server
	logger   *slog.Logger
	sessions sync.Map
}

func New(name string, port int, logger *slog.Logger) *Entrypoint {
	return &Entrypoint{
		name: name,
		port: port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (e *Entrypoint) Name() string { return e.name }
func (e *Entrypoint) Type() string { return "websocket" }

func (e *Entrypoint) Start(ctx context.Context, manager core.SessionManager) error {
	e.manager = manager

	mux := http.NewServeMux()
	mux.HandleFunc("/", e.handleConnection)

	e.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", e.port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e.server.Shutdown(shutdownCtx)
	}()

	e.logger.Info("websocket entrypoint starting", "name", e.name, "port", e.port)
	if err := e.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (e *Entrypoint) Stop(ctx context.Context) error {
	e.sessions.Range(func(_, val any) bool {
		sess := val.(*core.Session)
		e.manager.DestroySession(sess.ID)
		return true
	})
	if e.server != nil {
		return e.server.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the connection handler for tests and embedding.
func (e *Entrypoint) Handler(manager core.SessionManager) http.Handler {
	e.manager = manager
	return http.HandlerFunc(e.handleConnection)
}

func (e *Entrypoint) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Error("ws upgrade failed", "error", err)
		return
	}

	clientID := core.GenerateClientID(r)

	sess, err := e.manager.CreateSession(r.Context(), e.name, clientID)
	if err != nil {
		e.logger.Error("session creation failed", "client_id", clientID, "error", err)
		conn.Close()
		return
	}

	e.sessions.Store(sess.ID, sess)
	done := make(chan struct{})

	defer func() {
		close(done)
		conn.Close()
		e.sessions.Delete(sess.ID)
		e.manager.DestroySession(sess.ID)
		e.logger.Info("ws client disconnected", "client_id", clientID)
	}()

	e.logger.Info("ws client connected", "client_id", clientID, "session_id", sess.ID)

	go e.downstreamLoop(conn, sess, done)
	e.upstreamLoop(conn, sess, done)
}

func (e *Entrypoint) downstreamLoop(conn *websocket.Conn, sess *core.Session, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case frame := <-sess.Downstream:
			data, err := json.Marshal(frame)
			if err != nil {
				e.logger.Error("marshal downstream frame failed", "client_id", sess.ClientID, "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				e.logger.Error("ws write failed", "client_id", sess.ClientID, "error", err)
				return
			}
		}
	}
}

func (e *Entrypoint) upstreamLoop(conn *websocket.Conn, sess *core.Session, done <-chan struct{}) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				e.logger.Error("ws read error", "client_id", sess.ClientID, "error", err)
			}
			return
		}

		var call core.Call
		if err := json.Unmarshal(payload, &call); err != nil || call.Method == "" {
			e.logger.Warn("malformed call dropped", "client_id", sess.ClientID, "error", err)
			continue
		}

		select {
		case sess.Upstream <- call:
		case <-done:
			return
		}
	}
}
