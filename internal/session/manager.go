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

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/wso2/api-platform/gateway/engagement-bridge/internal/routing"
	"github.com/wso2/api-platform/gateway/engagement-bridge/pkg/core"
)

const DefaultChannelSize = 16

type activeSession struct {
	session *core.Session
	cancel  context.CancelFunc
}

// Manager owns the listener channels opened by the JavaScript runtime. It
// relays inbound calls to the invoker and fans outbound events out to every
// session whose entrypoint the event route allows.
type Manager struct {
	sessions     sync.Map
	count        atomic.Int64
	channelSizes sync.Map
	routes       *routing.Table
	invoker      atomic.Pointer[core.Invoker]
	logger       *slog.Logger

	hookMu     sync.Mutex
	onActivate func()
}

func NewManager(routes *routing.Table, logger *slog.Logger) *Manager {
	return &Manager{
		routes: routes,
		logger: logger,
	}
}

func (m *Manager) SetInvoker(inv core.Invoker) {
	m.invoker.Store(&inv)
}

// SetChannelSize sets the buffer size of sessions created by an entrypoint.
func (m *Manager) SetChannelSize(entrypointName string, size int) {
	m.channelSizes.Store(entrypointName, size)
}

// SetActivationHook registers fn to run each time a session attaches. A held
// event may be routed only to the entrypoint that just attached.
func (m *Manager) SetActivationHook(fn func()) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.onActivate = fn
}

func (m *Manager) channelSize(entrypointName string) int {
	if v, ok := m.channelSizes.Load(entrypointName); ok {
		if size := v.(int); size > 0 {
			return size
		}
	}
	return DefaultChannelSize
}

func (m *Manager) CreateSession(
	ctx context.Context,
	entrypointName string,
	clientID string,
) (*core.Session, error) {
	channelSize := m.channelSize(entrypointName)

	sessionCtx, sessionCancel := context.WithCancel(ctx)
	sessionID := uuid.New().String()

	sess := &core.Session{
		ID:             sessionID,
		ClientID:       clientID,
		EntrypointName: entrypointName,
		Downstream:     make(chan core.Frame, channelSize),
		Upstream:       make(chan core.Call, channelSize),
		Cancel:         sessionCancel,
	}

	m.sessions.Store(sessionID, &activeSession{
		session: sess,
		cancel:  sessionCancel,
	})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("upstream relay panic recovered", "session_id", sessionID, "error", r)
			}
		}()
		for {
			select {
			case <-sessionCtx.Done():
				return
			case call, ok := <-sess.Upstream:
				if !ok {
					return
				}
				result := m.Invoke(sessionCtx, call)
				select {
				case sess.Downstream <- core.ResultFrame(result):
				case <-sessionCtx.Done():
					return
				}
			}
		}
	}()

	m.logger.Info("session created",
		"session_id", sessionID,
		"client_id", clientID,
		"entrypoint", entrypointName,
		"channel_size", channelSize,
	)

	m.count.Add(1)
	m.hookMu.Lock()
	hook := m.onActivate
	m.hookMu.Unlock()
	if hook != nil {
		hook()
	}

	return sess, nil
}

func (m *Manager) DestroySession(sessionID string) error {
	val, ok := m.sessions.LoadAndDelete(sessionID)
	if !ok {
		return fmt.Errorf("%w: id=%s", core.ErrSessionNotFound, sessionID)
	}

	as := val.(*activeSession)
	as.cancel()
	m.count.Add(-1)

	m.logger.Info("session destroyed",
		"session_id", sessionID,
		"client_id", as.session.ClientID,
	)

	return nil
}

func (m *Manager) DestroyAll() {
	m.sessions.Range(func(key, _ any) bool {
		_ = m.DestroySession(key.(string))
		return true
	})
}

func (m *Manager) ActiveCount() int {
	return int(m.count.Load())
}

// Active reports whether any listener channel is attached.
func (m *Manager) Active() bool {
	return m.count.Load() > 0
}

// Invoke runs a call against the attached invoker.
func (m *Manager) Invoke(ctx context.Context, call core.Call) core.Result {
	inv := m.invoker.Load()
	if inv == nil {
		return core.Result{ID: call.ID, Error: core.Reject(core.Errorf(core.ErrUnknownMethod, "Method %s is not supported.", call.Method))}
	}
	return (*inv).Invoke(ctx, call)
}

// Emit offers evt to every allowed session without blocking. Sessions with a
// full downstream buffer miss the event. It returns the number of sessions reached.
func (m *Manager) Emit(evt core.WireEvent) int {
	frame := core.EventFrame(evt)
	delivered := 0
	m.sessions.Range(func(_, val any) bool {
		sess := val.(*activeSession).session
		if !m.routes.Allows(evt.Name, sess.EntrypointName) {
			return true
		}
		select {
		case sess.Downstream <- frame:
			delivered++
		default:
			m.logger.Warn("downstream full, event skipped",
				"session_id", sess.ID,
				"event", evt.Name,
			)
		}
		return true
	})
	return delivered
}

func (m *Manager) SessionByClientID(clientID string) (*core.Session, bool) {
	var found *core.Session
	m.sessions.Range(func(_, val any) bool {
		as := val.(*activeSession)
		if as.session.ClientID == clientID {
			found = as.session
			return false
		}
		return true
	})
	return found, found != nil
}
