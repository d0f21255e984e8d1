/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package keepalive

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/chirp-im/chirp/scheduler"
	"github.com/chirp-im/chirp/stream"
	"github.com/chirp-im/chirp/xmpp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

type failureRecorder struct {
	count int32
}

func (r *failureRecorder) PingFailed() {
	atomic.AddInt32(&r.count, 1)
}

func (r *failureRecorder) failures() int32 {
	return atomic.LoadInt32(&r.count)
}

func testConfig(interval, replyTimeout time.Duration) *Config {
	return &Config{Interval: interval, ReplyTimeout: replyTimeout}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond * 5)
	}
	require.Fail(t, "condition not met within timeout")
}

func TestManager_SendsPingAfterQuietPeriod(t *testing.T) {
	t.Parallel()

	conn := stream.NewMockConnection("c1", "chirp.im")
	sched := scheduler.New("keepalive-test")
	defer sched.Shutdown()

	m := NewManager(conn, sched, testConfig(time.Millisecond*50, time.Millisecond*200))
	defer m.Stop()

	elem := conn.FetchSentElement()
	iq, err := xmpp.NewIQFromElement(elem)
	require.Nil(t, err)
	require.True(t, iq.IsGet())
	require.True(t, iq.IsPing())
	require.Equal(t, "chirp.im", iq.To())
}

func TestManager_InboundActivityDefersPing(t *testing.T) {
	t.Parallel()

	conn := stream.NewMockConnection("c1", "chirp.im")
	sched := scheduler.New("keepalive-test")
	defer sched.Shutdown()

	m := NewManager(conn, sched, testConfig(time.Millisecond*120, time.Millisecond*200))
	defer m.Stop()

	// keep traffic flowing more often than the quiet period
	for i := 0; i < 6; i++ {
		time.Sleep(time.Millisecond * 40)
		conn.DeliverElement(xmpp.NewElementName("message"))
		require.Equal(t, 0, conn.PendingSentCount())
	}
	// go quiet and the probe must show up a full interval later
	elem := conn.FetchSentElement()
	iq, err := xmpp.NewIQFromElement(elem)
	require.Nil(t, err)
	require.True(t, iq.IsPing())
}

func TestManager_AnswersInboundPing(t *testing.T) {
	t.Parallel()

	conn := stream.NewMockConnection("c1", "chirp.im")
	sched := scheduler.New("keepalive-test")
	defer sched.Shutdown()

	m := NewManager(conn, sched, testConfig(time.Hour, time.Millisecond*200))
	defer m.Stop()

	ping := xmpp.NewPing("srv-ping-1")
	ping.SetAttribute("from", "chirp.im")
	conn.DeliverElement(ping)

	elem := conn.FetchSentElement()
	result, err := xmpp.NewIQFromElement(elem)
	require.Nil(t, err)
	require.True(t, result.IsResult())
	require.Equal(t, "srv-ping-1", result.ID())
	require.Equal(t, "chirp.im", result.To())
}

func TestManager_UnansweredPingNotifiesListenersOnce(t *testing.T) {
	t.Parallel()

	conn := stream.NewMockConnection("c1", "chirp.im")
	sched := scheduler.New("keepalive-test")
	defer sched.Shutdown()

	start := time.Now()
	m := NewManager(conn, sched, testConfig(time.Millisecond*50, time.Millisecond*60))
	rec := &failureRecorder{}
	m.AddPingFailedListener(rec)

	_ = conn.FetchSentElement() // probe goes out, reply never arrives
	waitFor(t, time.Second*2, func() bool { return rec.failures() >= 1 })
	m.Stop()

	// a failure can only surface after the quiet period plus the reply timeout
	require.True(t, time.Since(start) >= time.Millisecond*110)

	// no further notification for the same missed reply
	time.Sleep(time.Millisecond * 100)
	require.Equal(t, int32(1), rec.failures())
}

func TestManager_ReplySuppressesFailure(t *testing.T) {
	t.Parallel()

	conn := stream.NewMockConnection("c1", "chirp.im")
	sched := scheduler.New("keepalive-test")
	defer sched.Shutdown()

	m := NewManager(conn, sched, testConfig(time.Millisecond*50, time.Millisecond*150))
	defer m.Stop()
	rec := &failureRecorder{}
	m.AddPingFailedListener(rec)

	elem := conn.FetchSentElement()
	iq, err := xmpp.NewIQFromElement(elem)
	require.Nil(t, err)
	conn.DeliverElement(iq.ResultIQ())

	// freeze further probes so only the answered one is judged
	m.SetInterval(time.Hour)

	time.Sleep(time.Millisecond * 300)
	require.Equal(t, int32(0), rec.failures())
}

func TestManager_SetIntervalDisablesProbing(t *testing.T) {
	t.Parallel()

	conn := stream.NewMockConnection("c1", "chirp.im")
	sched := scheduler.New("keepalive-test")
	defer sched.Shutdown()

	m := NewManager(conn, sched, testConfig(time.Millisecond*50, time.Millisecond*200))
	defer m.Stop()

	m.SetInterval(0)
	require.Equal(t, time.Duration(0), m.Interval())

	time.Sleep(time.Millisecond * 150)
	require.Equal(t, 0, conn.PendingSentCount())

	m.SetInterval(time.Millisecond * 30)
	elem := conn.FetchSentElement()
	require.Equal(t, "iq", elem.Name())
}

func TestManager_StopCancelsPendingProbe(t *testing.T) {
	t.Parallel()

	conn := stream.NewMockConnection("c1", "chirp.im")
	sched := scheduler.New("keepalive-test")
	defer sched.Shutdown()

	m := NewManager(conn, sched, testConfig(time.Millisecond*60, time.Millisecond*200))
	m.Stop()

	time.Sleep(time.Millisecond * 180)
	require.Equal(t, 0, conn.PendingSentCount())
}

func TestManager_LastSuccessfulContact(t *testing.T) {
	t.Parallel()

	conn := stream.NewMockConnection("c1", "chirp.im")
	sched := scheduler.New("keepalive-test")
	defer sched.Shutdown()

	m := NewManager(conn, sched, testConfig(time.Hour, time.Millisecond*200))
	defer m.Stop()

	before := m.LastSuccessfulContact()
	time.Sleep(time.Millisecond * 20)
	conn.DeliverElement(xmpp.NewElementName("presence"))

	waitFor(t, time.Second, func() bool {
		return m.LastSuccessfulContact().After(before)
	})
}

func TestManager_RemovePingFailedListener(t *testing.T) {
	t.Parallel()

	conn := stream.NewMockConnection("c1", "chirp.im")
	sched := scheduler.New("keepalive-test")
	defer sched.Shutdown()

	m := NewManager(conn, sched, testConfig(time.Millisecond*40, time.Millisecond*50))
	defer m.Stop()
	rec := &failureRecorder{}
	m.AddPingFailedListener(rec)
	m.RemovePingFailedListener(rec)

	_ = conn.FetchSentElement()
	time.Sleep(time.Millisecond * 150)
	require.Equal(t, int32(0), rec.failures())
}

func TestRegistry_OneManagerPerConnection(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testConfig(time.Hour, time.Millisecond*200))
	defer r.Shutdown()

	c1 := stream.NewMockConnection("c1", "chirp.im")
	c2 := stream.NewMockConnection("c2", "chirp.im")

	m1 := r.ManagerFor(c1)
	m2 := r.ManagerFor(c2)
	require.NotNil(t, m1)
	require.NotNil(t, m2)
	require.False(t, m1 == m2)
	require.True(t, m1 == r.ManagerFor(c1))
}

func TestRegistry_EvictsOnConnectionClose(t *testing.T) {
	t.Parallel()

	r := NewRegistry(testConfig(time.Millisecond*40, time.Millisecond*200))
	defer r.Shutdown()

	conn := stream.NewMockConnection("c1", "chirp.im")
	m1 := r.ManagerFor(conn)
	conn.Close()

	time.Sleep(time.Millisecond * 150)
	require.Equal(t, 0, conn.PendingSentCount())

	// a later lookup for the same identifier builds a fresh manager
	conn2 := stream.NewMockConnection("c1", "chirp.im")
	require.False(t, m1 == r.ManagerFor(conn2))
}

func TestRegistry_AutoAttach(t *testing.T) {
	r := NewRegistry(testConfig(time.Millisecond*40, time.Millisecond*200))
	defer r.Shutdown()
	r.AutoAttach()

	conn := stream.NewMockConnection("c1", "chirp.im")
	stream.NotifyConnectionCreated(conn)

	elem := conn.FetchSentElement()
	iq, err := xmpp.NewIQFromElement(elem)
	require.Nil(t, err)
	require.True(t, iq.IsPing())
}

func TestRegistry_AutoAttachDisabled(t *testing.T) {
	r := NewRegistry(testConfig(0, time.Millisecond*200))
	defer r.Shutdown()
	r.AutoAttach()

	conn := stream.NewMockConnection("c1", "chirp.im")
	stream.NotifyConnectionCreated(conn)

	time.Sleep(time.Millisecond * 100)
	require.Equal(t, 0, conn.PendingSentCount())
}

func TestConfig_Unmarshal(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	err := yaml.Unmarshal([]byte("interval: 30000\nreply_timeout: 2500"), &cfg)
	require.Nil(t, err)
	require.Equal(t, time.Second*30, cfg.Interval)
	require.Equal(t, time.Millisecond*2500, cfg.ReplyTimeout)
}

func TestConfig_UnmarshalDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	err := yaml.Unmarshal([]byte("interval: 30000"), &cfg)
	require.Nil(t, err)
	require.Equal(t, defaultReplyTimeout, cfg.ReplyTimeout)
}
