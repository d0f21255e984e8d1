/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package keepalive

import (
	"sync"

	"github.com/chirp-im/chirp/scheduler"
	"github.com/chirp-im/chirp/stream"
)

// Registry hands out at most one keepalive manager per connection.
// The association does not keep connections alive: every manager is
// evicted as soon as its connection closes. All managers share one
// scheduler, so the number of background goroutines stays constant
// regardless of how many connections are registered.
type Registry struct {
	cfg   *Config
	sched *scheduler.Scheduler

	mu       sync.Mutex
	managers map[string]*Manager
}

// NewRegistry returns an empty registry using cfg for every manager
// it creates.
func NewRegistry(cfg *Config) *Registry {
	return &Registry{
		cfg:      cfg,
		sched:    scheduler.New("keepalive"),
		managers: make(map[string]*Manager),
	}
}

// ManagerFor returns the manager associated to conn, creating and
// attaching one on first use.
func (r *Registry) ManagerFor(conn stream.Connection) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.managers[conn.ID()]; m != nil {
		return m
	}
	m := NewManager(conn, r.sched, r.cfg)
	r.managers[conn.ID()] = m

	conn.RegisterCloseListener(&evictor{registry: r, connID: conn.ID()})
	return m
}

// ConnectionCreated satisfies stream.CreationListener interface.
func (r *Registry) ConnectionCreated(conn stream.Connection) {
	r.ManagerFor(conn)
}

// AutoAttach subscribes the registry to connection creation, so every
// new connection gets a manager without explicit wiring. It has no
// effect when the configured interval disables probing.
func (r *Registry) AutoAttach() {
	if r.cfg.Interval <= 0 {
		return
	}
	stream.RegisterCreationListener(r)
}

// Shutdown evicts every manager and stops the shared scheduler.
func (r *Registry) Shutdown() {
	stream.UnregisterCreationListener(r)

	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		managers = append(managers, m)
	}
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()

	for _, m := range managers {
		m.Stop()
	}
	r.sched.Shutdown()
}

func (r *Registry) evict(connID string) {
	r.mu.Lock()
	m := r.managers[connID]
	delete(r.managers, connID)
	r.mu.Unlock()

	if m != nil {
		m.Stop()
	}
}

type evictor struct {
	registry *Registry
	connID   string
}

func (e *evictor) ConnectionClosed() {
	e.registry.evict(e.connID)
}
