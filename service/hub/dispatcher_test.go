package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relayhub/tools/errs"
)

func newTestDispatcher() (*Registry, *Rooms, *Dispatcher, *Fanout) {
	reg := NewRegistry()
	rooms := NewRooms()
	fan := NewFanout(64)
	return reg, rooms, NewDispatcher(reg, rooms, fan), fan
}

func recvPayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case p := <-c.Send:
		return p
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for delivery to %s", c.ConnID)
		return nil
	}
}

func assertNoDelivery(t *testing.T, c *Client) {
	t.Helper()
	select {
	case p := <-c.Send:
		t.Fatalf("unexpected delivery to %s: %s", c.ConnID, p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDeliversToPublishTimeMembers(t *testing.T) {
	reg, rooms, disp, fan := newTestDispatcher()
	defer fan.Close()

	a := testClient("a", "u1")
	b := testClient("b", "u2")
	late := testClient("late", "u3")
	for _, c := range []*Client{a, b, late} {
		reg.Register(c)
	}
	rooms.Join(a, "team-1", RoomTeam)
	rooms.Join(b, "team-1", RoomTeam)

	require.NoError(t, disp.Publish(Event{Room: "team-1", Kind: EvMessage, Payload: []byte(`{"x":1}`)}))

	// joining after publish must not replay the event
	rooms.Join(late, "team-1", RoomTeam)

	assert.Equal(t, []byte(`{"x":1}`), recvPayload(t, a))
	assert.Equal(t, []byte(`{"x":1}`), recvPayload(t, b))
	assertNoDelivery(t, late)
}

func TestPublishExcludesSender(t *testing.T) {
	reg, rooms, disp, fan := newTestDispatcher()
	defer fan.Close()

	a := testClient("a", "u1")
	b := testClient("b", "u2")
	reg.Register(a)
	reg.Register(b)
	rooms.Join(a, "team-1", RoomTeam)
	rooms.Join(b, "team-1", RoomTeam)

	require.NoError(t, disp.Publish(Event{
		Room: "team-1", Kind: EvMessage, Payload: []byte("hi"), Exclude: "a",
	}))

	assert.Equal(t, []byte("hi"), recvPayload(t, b))
	assertNoDelivery(t, a)
}

func TestMultiTabMemberReceivesOncePerConnection(t *testing.T) {
	reg, rooms, disp, fan := newTestDispatcher()
	defer fan.Close()

	tab1 := testClient("tab1", "u1")
	tab2 := testClient("tab2", "u1")
	sender := testClient("s", "u2")
	for _, c := range []*Client{tab1, tab2, sender} {
		reg.Register(c)
		rooms.Join(c, "team-1", RoomTeam)
	}

	require.NoError(t, disp.Publish(Event{
		Room: "team-1", Kind: EvMessage, Payload: []byte("hi"), Exclude: "s",
	}))

	assert.Equal(t, []byte("hi"), recvPayload(t, tab1))
	assert.Equal(t, []byte("hi"), recvPayload(t, tab2))
}

func TestUserScopedPublishReachesAllConnectionsOfUser(t *testing.T) {
	reg, _, disp, fan := newTestDispatcher()
	defer fan.Close()

	tab1 := testClient("tab1", "u1")
	tab2 := testClient("tab2", "u1")
	other := testClient("o", "u2")
	for _, c := range []*Client{tab1, tab2, other} {
		reg.Register(c)
	}

	require.NoError(t, disp.Publish(Event{User: "u1", Kind: EvNotification, Payload: []byte("ping")}))

	assert.Equal(t, []byte("ping"), recvPayload(t, tab1))
	assert.Equal(t, []byte("ping"), recvPayload(t, tab2))
	assertNoDelivery(t, other)
}

func TestPublishWithoutScopeFails(t *testing.T) {
	_, _, disp, fan := newTestDispatcher()
	defer fan.Close()

	err := disp.Publish(Event{Kind: EvMessage, Payload: []byte("hi")})
	require.Error(t, err)
	assert.True(t, errs.ErrBadPayload.Is(err))
}

func TestPublishToUnknownRoomIsNoOp(t *testing.T) {
	_, _, disp, fan := newTestDispatcher()
	defer fan.Close()

	assert.NoError(t, disp.Publish(Event{Room: "ghost", Kind: EvMessage, Payload: []byte("hi")}))
}

func TestSlowClientIsSkippedNotFatal(t *testing.T) {
	reg, rooms, disp, fan := newTestDispatcher()
	defer fan.Close()

	slow := NewClient("slow", "u1", "u1", nil, 1)
	ok := testClient("ok", "u2")
	reg.Register(slow)
	reg.Register(ok)
	rooms.Join(slow, "team-1", RoomTeam)
	rooms.Join(ok, "team-1", RoomTeam)

	// fill the slow client's queue; nothing drains it
	require.NoError(t, disp.Publish(Event{Room: "team-1", Kind: EvMessage, Payload: []byte("1")}))
	require.NoError(t, disp.Publish(Event{Room: "team-1", Kind: EvMessage, Payload: []byte("2")}))

	// the healthy member still gets both, in order
	assert.Equal(t, []byte("1"), recvPayload(t, ok))
	assert.Equal(t, []byte("2"), recvPayload(t, ok))

	assert.Eventually(t, func() bool { return fan.Dropped() == 1 },
		time.Second, 10*time.Millisecond, "second delivery to the full queue should be dropped")
}

func TestRoomDeliveryPreservesPublishOrder(t *testing.T) {
	reg, rooms, disp, fan := newTestDispatcher()
	defer fan.Close()

	m := testClient("m", "u1")
	reg.Register(m)
	rooms.Join(m, "team-1", RoomTeam)

	payloads := [][]byte{[]byte("1"), []byte("2"), []byte("3"), []byte("4")}
	for _, p := range payloads {
		require.NoError(t, disp.Publish(Event{Room: "team-1", Kind: EvMessage, Payload: p}))
	}
	for _, want := range payloads {
		assert.Equal(t, want, recvPayload(t, m))
	}
}

type captureSink struct {
	events chan Event
}

func (s *captureSink) Deliver(ev Event) { s.events <- ev }

func TestSinkObservesPublishedEvents(t *testing.T) {
	_, rooms, disp, fan := newTestDispatcher()
	defer fan.Close()

	sink := &captureSink{events: make(chan Event, 1)}
	disp.SetSink(sink)

	m := testClient("m", "u1")
	rooms.Join(m, "team-1", RoomTeam)
	require.NoError(t, disp.Publish(Event{Room: "team-1", Kind: EvMessage, Payload: []byte("hi")}))

	select {
	case ev := <-sink.events:
		assert.Equal(t, "team-1", ev.Room)
		assert.Equal(t, EvMessage, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("sink never observed the event")
	}
}
