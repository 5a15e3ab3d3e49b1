package hub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUnregisterSingleConnection(t *testing.T) {
	r := NewRegistry()
	c := testClient("c1", "u1")

	r.Register(c)
	assert.True(t, r.Online("u1"))
	assert.Equal(t, 1, r.CountConnections())
	assert.Equal(t, 1, r.CountUsers())
	require.NotNil(t, r.GetByConn("c1"))

	got := r.Unregister("c1")
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ConnID)
	assert.False(t, r.Online("u1"))
	assert.Equal(t, 0, r.CountConnections())
}

func TestUnregisterUnknownConnection(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Unregister("nope"))
}

func TestMultiTabUserHasMultipleConnections(t *testing.T) {
	r := NewRegistry()
	r.Register(testClient("tab1", "u1"))
	r.Register(testClient("tab2", "u1"))

	conns := r.ListByUser("u1")
	require.Len(t, conns, 2)
	assert.Equal(t, 2, r.CountConnections())
	assert.Equal(t, 1, r.CountUsers())

	r.Unregister("tab1")
	assert.True(t, r.Online("u1"), "user stays online while one tab remains")

	r.Unregister("tab2")
	assert.False(t, r.Online("u1"))
}

func TestPresenceFiresOnlyOnEdges(t *testing.T) {
	r := NewRegistry()
	var mu sync.Mutex
	var events []string
	r.SetPresenceFunc(func(user string, online bool) {
		mu.Lock()
		events = append(events, fmt.Sprintf("%s:%v", user, online))
		mu.Unlock()
	})

	r.Register(testClient("tab1", "u1")) // edge: online
	r.Register(testClient("tab2", "u1")) // no edge
	r.Unregister("tab1")                 // no edge
	r.Unregister("tab2")                 // edge: offline

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"u1:true", "u1:false"}, events)
}

// Reconnect churn on a single user: edges must strictly alternate
// online/offline in transition order, never announcing a new online
// before the prior offline has been observed.
func TestPresenceEdgesAlternateUnderReconnectChurn(t *testing.T) {
	r := NewRegistry()
	var mu sync.Mutex
	var edges []bool
	r.SetPresenceFunc(func(_ string, online bool) {
		mu.Lock()
		edges = append(edges, online)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := fmt.Sprintf("c%d-%d", i, j)
				r.Register(testClient(id, "u1"))
				r.Unregister(id)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, edges)
	for i, online := range edges {
		require.Equalf(t, i%2 == 0, online, "edge %d out of order", i)
	}
	assert.False(t, edges[len(edges)-1], "final edge must be offline")
}

func TestRegistryConcurrentRegisterUnregister(t *testing.T) {
	r := NewRegistry()
	const n = 64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			r.Register(testClient(id, fmt.Sprintf("u%d", i%8)))
			r.Unregister(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.CountConnections())
	assert.Equal(t, 0, r.CountUsers())
}
