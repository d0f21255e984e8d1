/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package keepalive

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chirp-im/chirp/log"
	"github.com/chirp-im/chirp/scheduler"
	"github.com/chirp-im/chirp/stream"
	"github.com/chirp-im/chirp/xmpp"
	"github.com/pborman/uuid"
)

// PingFailedListener is notified when a keepalive probe goes
// unanswered past the configured reply timeout.
type PingFailedListener interface {
	PingFailed()
}

// Manager keeps a single connection alive by sending an XEP-0199
// ping whenever the connection stays quiet for the configured
// interval. Any inbound element counts as activity and pushes the
// next probe further out, so a busy connection is never pinged.
// It also answers inbound ping requests on behalf of the connection.
type Manager struct {
	conn         stream.Connection
	sched        *scheduler.Scheduler
	replyTimeout time.Duration

	mu       sync.Mutex
	interval time.Duration
	pingTask *scheduler.Task
	stopped  bool

	lastContact int64

	lsMu      sync.RWMutex
	listeners []PingFailedListener
}

// NewManager returns a manager attached to conn, rescheduling its
// probes on the shared scheduler. The manager registers itself for
// every inbound element on the connection.
func NewManager(conn stream.Connection, sched *scheduler.Scheduler, cfg *Config) *Manager {
	m := &Manager{
		conn:         conn,
		sched:        sched,
		replyTimeout: cfg.ReplyTimeout,
		interval:     cfg.Interval,
		lastContact:  time.Now().UnixNano(),
	}
	if m.replyTimeout <= 0 {
		m.replyTimeout = defaultReplyTimeout
	}
	conn.RegisterListener(m, nil)

	m.mu.Lock()
	m.schedulePing()
	m.mu.Unlock()
	return m
}

// ProcessElement satisfies stream.Listener interface. Every inbound
// element counts as activity, and ping requests are answered in place.
func (m *Manager) ProcessElement(elem xmpp.XElement) {
	m.OnInboundActivity()

	if elem.Name() != "iq" {
		return
	}
	iq, err := xmpp.NewIQFromElement(elem)
	if err != nil {
		return
	}
	if iq.IsGet() && iq.IsPing() {
		m.conn.SendStanza(iq.ResultIQ())
	}
}

// SetInterval changes the quiet period after which a probe is sent.
// A non positive value disables probing until a positive interval is
// set again. Setting the current value has no effect.
func (m *Manager) SetInterval(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interval == interval {
		return
	}
	m.interval = interval
	m.schedulePing()
}

// Interval returns the currently configured quiet period.
func (m *Manager) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// Stop cancels any pending probe and detaches the manager from the
// connection. A stopped manager never probes again.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	if m.pingTask != nil {
		m.pingTask.Cancel()
		m.pingTask = nil
	}
	m.mu.Unlock()

	m.conn.UnregisterListener(m)
}

// AddPingFailedListener subscribes a listener to probe failures.
func (m *Manager) AddPingFailedListener(l PingFailedListener) {
	m.lsMu.Lock()
	defer m.lsMu.Unlock()
	m.listeners = append(m.listeners, l)
}

// RemovePingFailedListener removes a previously subscribed listener.
func (m *Manager) RemovePingFailedListener(l PingFailedListener) {
	m.lsMu.Lock()
	defer m.lsMu.Unlock()
	for i, rl := range m.listeners {
		if rl == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// LastSuccessfulContact returns the time the last inbound element was
// seen on the connection.
func (m *Manager) LastSuccessfulContact() time.Time {
	return time.Unix(0, atomic.LoadInt64(&m.lastContact))
}

// OnInboundActivity records connection activity, pushing the next
// probe a full quiet period away.
func (m *Manager) OnInboundActivity() {
	atomic.StoreInt64(&m.lastContact, time.Now().UnixNano())

	m.mu.Lock()
	m.schedulePing()
	m.mu.Unlock()
}

// schedulePing cancels the pending probe, if any, and schedules a new
// one a full interval away. Callers must hold m.mu.
func (m *Manager) schedulePing() {
	if m.pingTask != nil {
		m.pingTask.Cancel()
		m.pingTask = nil
	}
	if m.stopped || m.interval <= 0 {
		return
	}
	m.pingTask = m.sched.Schedule(m.interval, m.sendPing)
}

// runs on the scheduler goroutine
func (m *Manager) sendPing() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.schedulePing()
	m.mu.Unlock()

	if m.conn.IsSocketClosed() {
		return
	}
	ping := xmpp.NewPing(uuid.New())
	ping.SetAttribute("to", m.conn.ServiceName())

	collector := stream.NewCollector()
	m.conn.RegisterListener(collector, stream.IDFilter(ping.ID()))
	m.conn.SendStanza(ping)

	// the reply only has to be awaited when somebody cares about
	// the outcome
	if !m.hasListeners() {
		m.conn.UnregisterListener(collector)
		collector.Cancel()
		return
	}
	m.sched.Schedule(m.replyTimeout, func() {
		reply := collector.Poll()
		m.conn.UnregisterListener(collector)
		collector.Cancel()
		if reply != nil {
			return
		}
		m.mu.Lock()
		stopped := m.stopped
		m.mu.Unlock()
		if stopped {
			return
		}
		log.Infof("keepalive: no reply to probe on %s within %v", m.conn.ID(), m.replyTimeout)
		m.notifyPingFailed()
	})
}

func (m *Manager) hasListeners() bool {
	m.lsMu.RLock()
	defer m.lsMu.RUnlock()
	return len(m.listeners) > 0
}

func (m *Manager) notifyPingFailed() {
	m.lsMu.RLock()
	ls := make([]PingFailedListener, len(m.listeners))
	copy(ls, m.listeners)
	m.lsMu.RUnlock()
	for _, l := range ls {
		l.PingFailed()
	}
}
