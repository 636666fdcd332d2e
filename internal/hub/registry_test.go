package hub_test

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/hub"
)

// --- Test Suite Setup ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry() *hub.Registry {
	return hub.NewRegistry(newTestLogger(), 4)
}

// fakeHandle records every frame sent to it.
type fakeHandle struct {
	id     uuid.UUID
	mu     sync.Mutex
	frames []string
	closed bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{id: uuid.New()}
}

func (f *fakeHandle) ID() uuid.UUID { return f.id }

func (f *fakeHandle) Send(msg []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, string(msg))
}

func (f *fakeHandle) Close(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeHandle) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// countStatus counts user-status frames matching userID and status.
func (f *fakeHandle) countStatus(userID, status string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, frame := range f.frames {
		if gjson.Get(frame, "type").String() != "user-status" {
			continue
		}
		if gjson.Get(frame, "userId").String() == userID && gjson.Get(frame, "status").String() == status {
			n++
		}
	}
	return n
}

func (f *fakeHandle) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

// --- Lifecycle Tests ---

func TestRegisterUnregisterLifecycle(t *testing.T) {
	r := newTestRegistry()
	h := newFakeHandle()

	if r.IsOnline("alice") {
		t.Fatal("alice reported online before registering")
	}

	online := r.Register("alice", "STUDENT", h)
	if !r.IsOnline("alice") {
		t.Error("alice not online after Register")
	}
	if len(online) != 1 || online[0] != "alice" {
		t.Errorf("expected snapshot [alice], got %v", online)
	}
	if r.ConnectionCount("alice") != 1 {
		t.Errorf("expected 1 connection, got %d", r.ConnectionCount("alice"))
	}

	r.Unregister("alice", h.ID())
	if r.IsOnline("alice") {
		t.Error("alice still online after last handle unregistered")
	}
	if got := r.OnlineUsers(); len(got) != 0 {
		t.Errorf("expected empty online list, got %v", got)
	}
}

func TestUnregisterUnknownPairIsNoOp(t *testing.T) {
	r := newTestRegistry()
	h := newFakeHandle()

	// Never registered: must not panic or change anything.
	r.Unregister("ghost", h.ID())
	if r.IsOnline("ghost") {
		t.Error("unregister created a registry entry")
	}

	r.Register("alice", "STUDENT", h)
	r.Unregister("alice", uuid.New()) // wrong conn id
	if !r.IsOnline("alice") {
		t.Error("unregister with foreign conn id removed the user")
	}
}

func TestDoubleRegisterSameHandle(t *testing.T) {
	r := newTestRegistry()
	h := newFakeHandle()

	r.Register("alice", "STUDENT", h)
	r.Register("alice", "STUDENT", h)
	if r.ConnectionCount("alice") != 1 {
		t.Errorf("double register duplicated handle: count %d", r.ConnectionCount("alice"))
	}

	// One unregister must fully restore the offline state.
	r.Unregister("alice", h.ID())
	if r.IsOnline("alice") {
		t.Error("alice still online after unregister")
	}
}

// --- Presence Broadcast Tests ---

func TestPresenceBroadcastExactlyOncePerTransition(t *testing.T) {
	r := newTestRegistry()
	alice := newFakeHandle()
	r.Register("alice", "STUDENT", alice)

	bob1 := newFakeHandle()
	r.Register("bob", "STUDENT", bob1)
	if got := alice.countStatus("bob", "online"); got != 1 {
		t.Errorf("expected exactly 1 online broadcast for bob, got %d", got)
	}
	if got := bob1.countStatus("bob", "online"); got != 0 {
		t.Error("transitioning user received its own presence broadcast")
	}

	// Second handle: 1→2 transition must not broadcast again.
	bob2 := newFakeHandle()
	r.Register("bob", "STUDENT", bob2)
	if got := alice.countStatus("bob", "online"); got != 1 {
		t.Errorf("repeated registration broadcast again: %d", got)
	}

	// 2→1 must not broadcast offline; 1→0 must, exactly once.
	r.Unregister("bob", bob1.ID())
	if got := alice.countStatus("bob", "offline"); got != 0 {
		t.Errorf("offline broadcast before last handle closed: %d", got)
	}
	r.Unregister("bob", bob2.ID())
	if got := alice.countStatus("bob", "offline"); got != 1 {
		t.Errorf("expected exactly 1 offline broadcast, got %d", got)
	}
}

func TestSnapshotListsAllOnlineUsers(t *testing.T) {
	r := newTestRegistry()
	r.Register("alice", "STUDENT", newFakeHandle())
	r.Register("bob", "FACULTY", newFakeHandle())

	online := r.Register("carol", "STUDENT", newFakeHandle())
	if len(online) != 3 {
		t.Fatalf("expected 3 online users, got %v", online)
	}
	seen := make(map[string]bool)
	for _, id := range online {
		seen[id] = true
	}
	for _, id := range []string{"alice", "bob", "carol"} {
		if !seen[id] {
			t.Errorf("snapshot missing %s: %v", id, online)
		}
	}
}

// --- Delivery Tests ---

func TestSendToReachesEveryHandle(t *testing.T) {
	r := newTestRegistry()
	h1, h2 := newFakeHandle(), newFakeHandle()
	r.Register("alice", "STUDENT", h1)
	r.Register("alice", "STUDENT", h2)
	h1.reset()
	h2.reset()

	r.SendTo("alice", []byte(`{"type":"message"}`))
	if h1.frameCount() != 1 || h2.frameCount() != 1 {
		t.Errorf("expected 1 frame per handle, got %d and %d", h1.frameCount(), h2.frameCount())
	}
}

func TestSendToOfflineUserIsSilent(t *testing.T) {
	r := newTestRegistry()
	r.SendTo("nobody", []byte(`{"type":"message"}`))
	// Nothing to assert beyond "did not panic" and no entry appeared.
	if r.IsOnline("nobody") {
		t.Error("SendTo created a registry entry")
	}
}

// --- Role and Limiter Support Tests ---

func TestUsersByRole(t *testing.T) {
	r := newTestRegistry()
	r.Register("prof-x", "FACULTY", newFakeHandle())
	r.Register("alice", "STUDENT", newFakeHandle())
	r.Register("prof-y", "FACULTY", newFakeHandle())

	faculty := r.UsersByRole("FACULTY")
	if len(faculty) != 2 {
		t.Fatalf("expected 2 faculty, got %v", faculty)
	}
	for _, id := range faculty {
		if id == "alice" {
			t.Error("student listed in faculty broadcast set")
		}
	}
}

func TestOldestConnection(t *testing.T) {
	r := newTestRegistry()
	h1 := newFakeHandle()
	r.Register("alice", "STUDENT", h1)
	time.Sleep(5 * time.Millisecond) // Ensure timestamps are different
	h2 := newFakeHandle()
	r.Register("alice", "STUDENT", h2)

	oldest, found := r.OldestConnection("alice")
	if !found {
		t.Fatal("expected to find oldest connection")
	}
	if oldest.ID() != h1.ID() {
		t.Errorf("expected oldest to be first handle, got %s", oldest.ID())
	}

	_, found = r.OldestConnection("nobody")
	if found {
		t.Error("found oldest connection for unknown user")
	}
}

func TestCloseAll(t *testing.T) {
	r := newTestRegistry()
	h1, h2 := newFakeHandle(), newFakeHandle()
	r.Register("alice", "STUDENT", h1)
	r.Register("bob", "STUDENT", h2)

	r.CloseAll(errors.New("shutdown"))
	if !h1.isClosed() || !h2.isClosed() {
		t.Error("CloseAll left handles open")
	}
}

// --- Concurrency ---

func TestConcurrentRegisterUnregister(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := "user" + strconv.Itoa(i%10)
			h := newFakeHandle()
			r.Register(userID, "STUDENT", h)
			r.SendTo(userID, []byte(`{"type":"ping"}`))
			r.Unregister(userID, h.ID())
		}(i)
	}
	wg.Wait()

	if got := r.OnlineUsers(); len(got) != 0 {
		t.Errorf("expected empty registry after paired register/unregister, got %v", got)
	}
}
