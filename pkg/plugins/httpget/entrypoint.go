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

package httpget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

const DefaultPollTimeout = 30 * time.Second

// Entrypoint is a long-polling listener channel. A client subscribes once and
// then polls for the frames queued on its session.
type Entrypoint struct {
	name        string
	port        int
	pollTimeout time.Duration
	manager     core.SessionManager
	server      *http.Server
	logger      *slog.Logger
	sessions    sync.Map
}

func New(name string, port int, logger *slog.Logger) *Entrypoint {
	return &Entrypoint{name: name, port: port, pollTimeout: DefaultPollTimeout, logger: logger}
}

func (e *Entrypoint) Name() string { return e.name }
func (e *Entrypoint) Type() string { return "http_get" }

func (e *Entrypoint) SetPollTimeout(d time.Duration) {
	if d > 0 {
		e.pollTimeout = d
	}
}

func (e *Entrypoint) Start(ctx context.Context, manager core.SessionManager) error {
	e.server = &http.Server{Addr: fmt.Sprintf(":%d", e.port), Handler: e.Handler(manager)}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e.server.Shutdown(shutdownCtx)
	}()

	e.logger.Info("http_get entrypoint starting", "name", e.name, "port", e.port)
	if err := e.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (e *Entrypoint) Stop(ctx context.Context) error {
	e.sessions.Range(func(key, val any) bool {
		sess := val.(*core.Session)
		e.manager.DestroySession(sess.ID)
		e.sessions.Delete(key)
		return true
	})
	if e.server != nil {
		return e.server.Shutdown(ctx)
	}
	return nil
}

func (e *Entrypoint) Handler(manager core.SessionManager) http.Handler {
	e.manager = manager
	mux := http.NewServeMux()
	mux.HandleFunc("/subscribe", e.handleSubscribe)
	mux.HandleFunc("/poll", e.handlePoll)
	mux.HandleFunc("/unsubscribe", e.handleUnsubscribe)
	return mux
}

func (e *Entrypoint) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	clientID := r.Header.Get(core.ClientIDHeader)
	if clientID == "" {
		http.Error(w, core.ClientIDHeader+" header required", http.StatusBadRequest)
		return
	}
	if _, ok := e.sessions.Load(clientID); ok {
		http.Error(w, "already subscribed", http.StatusConflict)
		return
	}

	// The session outlives the subscribe request.
	sess, err := e.manager.CreateSession(context.WithoutCancel(r.Context()), e.name, clientID)
	if err != nil {
		e.logger.Error("http_get subscribe failed", "error", err)
		http.Error(w, "subscription failed", http.StatusInternalServerError)
		return
	}

	e.sessions.Store(clientID, sess)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"session_id": sess.ID, "client_id": clientID})
}

// handlePoll waits for the first frame, then drains whatever else is queued.
func (e *Entrypoint) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}

	val, ok := e.sessions.Load(r.Header.Get(core.ClientIDHeader))
	if !ok {
		http.Error(w, "not subscribed, call /subscribe first", http.StatusNotFound)
		return
	}
	sess := val.(*core.Session)

	ctx, cancel := context.WithTimeout(r.Context(), e.pollTimeout)
	defer cancel()

	var frames []core.Frame
	select {
	case frame := <-sess.Downstream:
		frames = append(frames, frame)
	case <-ctx.Done():
		w.WriteHeader(http.StatusNoContent)
		return
	}

drain:
	for {
		select {
		case frame := <-sess.Downstream:
			frames = append(frames, frame)
		default:
			break drain
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(frames); err != nil {
		e.logger.Error("http_get write failed", "client_id", sess.ClientID, "error", err)
	}
}

func (e *Entrypoint) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "DELETE required", http.StatusMethodNotAllowed)
		return
	}

	val, ok := e.sessions.LoadAndDelete(r.Header.Get(core.ClientIDHeader))
	if !ok {
		http.Error(w, "not subscribed", http.StatusNotFound)
		return
	}

	sess := val.(*core.Session)
	e.manager.DestroySession(sess.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"unsubscribed"}`))
}
