package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"marketguard/internal/logger"
)

type fakeHandle struct {
	id string

	mu     sync.Mutex
	events []Event
	fail   error
}

func newFakeHandle(id string) *fakeHandle {
	return &fakeHandle{id: id}
}

func (f *fakeHandle) ID() string { return f.id }

func (f *fakeHandle) Deliver(_ context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeHandle) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

func (f *fakeHandle) breakWith(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

var (
	userU1 = Identity{Kind: KindUser, ID: "u1"}
	proP1  = Identity{Kind: KindPro, ID: "p1"}
)

func TestHub_RegisterSendUnregister(t *testing.T) {
	hub := NewHub(logger.NopLogger())
	ctx := context.Background()
	tab1, tab2 := newFakeHandle("h1"), newFakeHandle("h2")

	hub.Register(userU1, tab1)
	hub.Register(userU1, tab2)
	assert.Equal(t, 2, hub.SessionCount(userU1))

	first := NewEvent(EventNotification, map[string]interface{}{"n": 1})
	assert.Equal(t, 2, hub.Send(ctx, userU1, first))
	assert.Equal(t, []Event{first}, tab1.received())
	assert.Equal(t, []Event{first}, tab2.received())

	hub.Unregister(tab1)
	second := NewEvent(EventNotification, map[string]interface{}{"n": 2})
	assert.Equal(t, 1, hub.Send(ctx, userU1, second))
	assert.Equal(t, []Event{first}, tab1.received())
	assert.Equal(t, []Event{first, second}, tab2.received())

	hub.Unregister(tab2)
	assert.Equal(t, 0, hub.IdentityCount())
	assert.Equal(t, 0, hub.SessionCount(userU1))
	assert.Equal(t, 0, hub.TotalSessions())
}

func TestHub_RegisterIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	h := newFakeHandle("h1")

	hub.Register(userU1, h)
	hub.Register(userU1, h)

	assert.Equal(t, 1, hub.SessionCount(userU1))
	assert.Equal(t, 1, hub.Send(context.Background(), userU1, NewEvent(EventNotification, nil)))
	assert.Len(t, h.received(), 1)
}

func TestHub_RegisterUnderNewIdentityMovesHandle(t *testing.T) {
	hub := NewHub(nil)
	h := newFakeHandle("h1")

	hub.Register(userU1, h)
	hub.Register(proP1, h)

	assert.Equal(t, 0, hub.SessionCount(userU1))
	assert.Equal(t, 1, hub.SessionCount(proP1))
	assert.Equal(t, 1, hub.IdentityCount())
}

func TestHub_UnregisterUnknownIsNoop(t *testing.T) {
	hub := NewHub(nil)
	h := newFakeHandle("h1")

	hub.Unregister(h)
	hub.Register(userU1, h)
	hub.Unregister(h)
	hub.Unregister(h)

	assert.Equal(t, 0, hub.IdentityCount())
}

func TestHub_SendDropsFailedHandle(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	hub := NewHub(logger.FromZap(zap.New(core)))
	ctx := context.Background()
	healthy, broken := newFakeHandle("ok"), newFakeHandle("dead")
	broken.breakWith(errors.New("broken pipe"))

	hub.Register(userU1, healthy)
	hub.Register(userU1, broken)

	assert.Equal(t, 1, hub.Send(ctx, userU1, NewEvent(EventNotification, nil)))
	assert.Equal(t, 1, hub.SessionCount(userU1))
	assert.Len(t, healthy.received(), 1)

	entries := logs.FilterMessage("Dropping session after failed delivery").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "dead", entries[0].ContextMap()["handle_id"])

	healthy.breakWith(errors.New("closed"))
	assert.Equal(t, 0, hub.Send(ctx, userU1, NewEvent(EventNotification, nil)))
	assert.Equal(t, 0, hub.IdentityCount())
}

func TestHub_SendToUnknownIdentity(t *testing.T) {
	hub := NewHub(nil)
	assert.Equal(t, 0, hub.Send(context.Background(), userU1, NewEvent(EventNotification, nil)))
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(nil)
	ctx := context.Background()
	sender, receiver := newFakeHandle("s"), newFakeHandle("r")
	hub.Register(userU1, sender)
	hub.Register(proP1, receiver)

	event := NewEvent(EventMessageCreated, map[string]interface{}{"text": "hi"})
	assert.Equal(t, 2, hub.Broadcast(ctx, userU1, proP1, event))
	assert.Equal(t, []Event{event}, sender.received())
	assert.Equal(t, []Event{event}, receiver.received())

	assert.Equal(t, 1, hub.Broadcast(ctx, userU1, userU1, event))
	assert.Len(t, sender.received(), 2)
}

func TestHub_PreservesOrderForSingleHandle(t *testing.T) {
	hub := NewHub(nil)
	h := newFakeHandle("h1")
	hub.Register(userU1, h)

	for i := 0; i < 100; i++ {
		hub.Send(context.Background(), userU1, Event{ID: fmt.Sprint(i), Type: EventNotification})
	}

	got := h.received()
	require.Len(t, got, 100)
	for i, e := range got {
		assert.Equal(t, fmt.Sprint(i), e.ID)
	}
}

func TestHub_ConcurrentRegisterSendUnregister(t *testing.T) {
	hub := NewHub(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			identity := Identity{Kind: KindUser, ID: fmt.Sprintf("u%d", w%4)}
			for i := 0; i < 200; i++ {
				h := newFakeHandle(fmt.Sprintf("w%d-h%d", w, i))
				hub.Register(identity, h)
				hub.Send(ctx, identity, NewEvent(EventNotification, nil))
				hub.Unregister(h)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.IdentityCount())
	assert.Equal(t, 0, hub.TotalSessions())
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, "pro:p1", proP1.Key())
	assert.NoError(t, proP1.Validate())
	assert.Error(t, Identity{Kind: "admin", ID: "x"}.Validate())
	assert.Error(t, Identity{Kind: KindUser}.Validate())

	kind, err := ParseKind("user")
	require.NoError(t, err)
	assert.Equal(t, KindUser, kind)
	_, err = ParseKind("User")
	assert.Error(t, err)
}
