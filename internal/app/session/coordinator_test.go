package session

import (
	"sync"
	"testing"
	"time"

	"github.com/ajjacobi12/friend-finder-sub000/internal/configs"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/errs"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/randx"
	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/validate"
)

// fakeConn is an in-process session.Conn implementation recording every frame
// it is asked to deliver.
type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames []Frame
	kicked bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Kick(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicked = true
}

func (f *fakeConn) wasKicked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kicked
}

func (f *fakeConn) framesByEvent(event string) []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Frame
	for _, fr := range f.frames {
		if fr.Event == event {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

// testConfig returns a config with short presence timings so grace and
// deletion behavior is observable in tests.
func testConfig(grace, ttl time.Duration) *configs.AppConfig {
	return &configs.AppConfig{
		Environment:     "test",
		GracePeriod:     grace,
		EmptySessionTTL: ttl,
		SessionCapacity: configs.DefaultSessionCapacity,
		IdentitySecret:  "test-secret",
	}
}

func newTestCoordinator(grace, ttl time.Duration) *Coordinator {
	return NewCoordinator(testConfig(grace, ttl), NewTopicHub())
}

func mustCreate(t *testing.T, c *Coordinator, conn Conn) *JoinResult {
	t.Helper()

	result, cerr := c.CreateSession(conn, "", "")
	if cerr != nil {
		t.Fatalf("CreateSession failed: %v", cerr)
	}
	return result
}

func mustJoin(t *testing.T, c *Coordinator, conn Conn, code, uuid string) *JoinResult {
	t.Helper()

	result, cerr := c.JoinSession(conn, code, uuid, "")
	if cerr != nil {
		t.Fatalf("JoinSession(%s) failed: %v", code, cerr)
	}
	return result
}

func TestCreateSessionFirstMemberIsHost(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)
	connA := newFakeConn("conn-a")

	result := mustCreate(t, c, connA)

	if !result.User.IsHost {
		t.Error("Session creator is not host")
	}
	if !randx.IsValidSessionCode(result.User.SessionID) {
		t.Errorf("Session code %q is not a valid code", result.User.SessionID)
	}
	if len(result.Members) != 1 {
		t.Errorf("Expected 1 member, got %d", len(result.Members))
	}
	if result.IdentityToken == "" {
		t.Error("Create did not issue an identity token")
	}

	if got := len(connA.framesByEvent(EventHostChange)); got != 1 {
		t.Errorf("Expected 1 host-change frame for creator, got %d", got)
	}
	if got := len(connA.framesByEvent(EventUserUpdate)); got != 1 {
		t.Errorf("Expected 1 user-update frame for creator, got %d", got)
	}
}

func TestJoinDoesNotRefireHostChange(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	resultA := mustCreate(t, c, connA)
	connA.reset()

	resultB := mustJoin(t, c, connB, resultA.User.SessionID, "")

	if resultB.User.IsHost {
		t.Error("Second member unexpectedly became host")
	}
	if len(resultB.Members) != 2 {
		t.Errorf("Expected 2 members, got %d", len(resultB.Members))
	}

	if got := len(connA.framesByEvent(EventHostChange)); got != 0 {
		t.Errorf("host-change re-fired on join: %d frames", got)
	}
	if got := len(connA.framesByEvent(EventUserUpdate)); got != 1 {
		t.Errorf("Expected membership update on join, got %d frames", got)
	}
}

func TestJoinNonexistentSessionFails(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)

	_, cerr := c.JoinSession(newFakeConn("conn-a"), "ZZZZZZ", "", "")
	if cerr == nil {
		t.Fatal("Join to nonexistent session succeeded")
	}
	if cerr.Code != errs.ErrSessionNotFound {
		t.Errorf("Expected code %d (session not found), got %d", errs.ErrSessionNotFound, cerr.Code)
	}
	if !cerr.IsNotFound() {
		t.Error("Session-not-found error not classified as not-found")
	}
}

func TestGhostBustingLeavesSingleBinding(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)
	conn1 := newFakeConn("conn-1")
	conn2 := newFakeConn("conn-2")

	result := mustCreate(t, c, conn1)
	uuid := result.User.UUID
	code := result.User.SessionID

	mustJoin(t, c, conn2, code, uuid)

	if !conn1.wasKicked() {
		t.Error("Stale connection was not kicked")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.reg.conns[conn1.ID()]; ok {
		t.Error("Stale connection binding survived ghost busting")
	}
	b, ok := c.reg.conns[conn2.ID()]
	if !ok || b.uuid != uuid {
		t.Error("New connection binding missing after ghost busting")
	}
	if u := c.reg.users[uuid]; u == nil || u.ConnectionID != conn2.ID() {
		t.Error("User record not rebound to the newest connection")
	}
	if count := c.reg.memberCount(code); count != 1 {
		t.Errorf("Expected 1 member after ghost busting, got %d", count)
	}
}

func TestReconnectWithinGraceKeepsIdentity(t *testing.T) {
	c := newTestCoordinator(500*time.Millisecond, time.Minute)
	conn1 := newFakeConn("conn-1")
	connB := newFakeConn("conn-b")

	result := mustCreate(t, c, conn1)
	code := result.User.SessionID
	uuid := result.User.UUID

	if cerr := c.UpdateProfile(conn1, validate.Profile{Name: "Alice", Color: "#ff0000"}); cerr != nil {
		t.Fatalf("UpdateProfile failed: %v", cerr)
	}
	mustJoin(t, c, connB, code, "")

	c.HandleDisconnect(conn1)
	connB.reset()

	conn2 := newFakeConn("conn-2")
	rejoined := mustJoin(t, c, conn2, code, uuid)

	if rejoined.User.UUID != uuid {
		t.Error("Reconnect changed the identity")
	}
	if !rejoined.User.IsHost {
		t.Error("Reconnect within grace lost host status")
	}
	if rejoined.User.Name != "Alice" || rejoined.User.Color != "#ff0000" {
		t.Errorf("Reconnect lost profile: name=%q color=%q", rejoined.User.Name, rejoined.User.Color)
	}
	if len(rejoined.Members) != 2 {
		t.Errorf("Reconnect changed membership: %d members", len(rejoined.Members))
	}

	if got := len(connB.framesByEvent(EventHostChange)); got != 0 {
		t.Errorf("host-change fired on host reconnect: %d frames", got)
	}

	// The lapsed timer must not remove the reconnected user.
	time.Sleep(700 * time.Millisecond)
	if c.UserByConn(conn2.ID()) == nil {
		t.Error("Grace timer removed a reconnected user")
	}
}

func TestGraceExpiryRemovesUserAndElectsHost(t *testing.T) {
	c := newTestCoordinator(60*time.Millisecond, time.Minute)
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	resultA := mustCreate(t, c, connA)
	code := resultA.User.SessionID
	resultB := mustJoin(t, c, connB, code, "")

	connB.reset()
	c.HandleDisconnect(connA)

	time.Sleep(300 * time.Millisecond)

	if c.UserByConn(connA.ID()) != nil {
		t.Error("Expired user still bound after grace period")
	}

	hostChanges := connB.framesByEvent(EventHostChange)
	if len(hostChanges) != 1 {
		t.Fatalf("Expected 1 host-change after expiry, got %d", len(hostChanges))
	}
	payload, ok := hostChanges[0].Payload.(HostChangePayload)
	if !ok {
		t.Fatalf("host-change payload has unexpected type %T", hostChanges[0].Payload)
	}
	if payload.UUID != resultB.User.UUID {
		t.Errorf("Expected new host %s, got %s", resultB.User.UUID, payload.UUID)
	}

	updates := connB.framesByEvent(EventUserUpdate)
	if len(updates) == 0 {
		t.Fatal("No membership update after expiry")
	}
	members, ok := updates[len(updates)-1].Payload.([]User)
	if !ok {
		t.Fatalf("user-update payload has unexpected type %T", updates[len(updates)-1].Payload)
	}
	if len(members) != 1 || !members[0].IsHost {
		t.Errorf("Expected a single host member after expiry, got %+v", members)
	}
}

func TestEmptySessionIsDeletedAfterTTL(t *testing.T) {
	c := newTestCoordinator(time.Second, 80*time.Millisecond)
	connA := newFakeConn("conn-a")

	result := mustCreate(t, c, connA)
	code := result.User.SessionID

	if cerr := c.LeaveSession(connA, code); cerr != nil {
		t.Fatalf("LeaveSession failed: %v", cerr)
	}

	time.Sleep(300 * time.Millisecond)

	_, cerr := c.JoinSession(newFakeConn("conn-b"), code, "", "")
	if cerr == nil || cerr.Code != errs.ErrSessionNotFound {
		t.Errorf("Session survived past its empty TTL: %v", cerr)
	}
}

func TestRejoinCancelsPendingDeletion(t *testing.T) {
	c := newTestCoordinator(time.Second, 80*time.Millisecond)
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	result := mustCreate(t, c, connA)
	code := result.User.SessionID

	if cerr := c.LeaveSession(connA, code); cerr != nil {
		t.Fatalf("LeaveSession failed: %v", cerr)
	}

	// Join again while the deletion timer is pending.
	mustJoin(t, c, connB, code, "")

	time.Sleep(300 * time.Millisecond)

	if c.UserByConn(connB.ID()) == nil {
		t.Error("Deletion timer purged a session that had been rejoined")
	}
}

func TestSessionCapacityWithReconnectExemption(t *testing.T) {
	cfg := testConfig(time.Second, time.Minute)
	cfg.SessionCapacity = 3
	c := NewCoordinator(cfg, NewTopicHub())

	connA := newFakeConn("conn-a")
	result := mustCreate(t, c, connA)
	code := result.User.SessionID

	var memberUUID string
	for i := 0; i < 2; i++ {
		r := mustJoin(t, c, newFakeConn("conn-member-"+string(rune('0'+i))), code, "")
		memberUUID = r.User.UUID
	}

	_, cerr := c.JoinSession(newFakeConn("conn-late"), code, "", "")
	if cerr == nil || cerr.Code != errs.ErrSessionFull {
		t.Errorf("Join beyond capacity was not rejected: %v", cerr)
	}

	// A uuid already counted among the members reconnects past the cap.
	if _, cerr := c.JoinSession(newFakeConn("conn-reconnect"), code, memberUUID, ""); cerr != nil {
		t.Errorf("Reconnect of an existing member was rejected at capacity: %v", cerr)
	}
}

func TestLeaveSessionIsIdempotent(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)
	connA := newFakeConn("conn-a")

	result := mustCreate(t, c, connA)
	code := result.User.SessionID

	if cerr := c.LeaveSession(connA, code); cerr != nil {
		t.Fatalf("First leave failed: %v", cerr)
	}
	if cerr := c.LeaveSession(connA, code); cerr != nil {
		t.Errorf("Second leave of an already-removed user failed: %v", cerr)
	}
}

func TestEndSessionRequiresHost(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	result := mustCreate(t, c, connA)
	code := result.User.SessionID
	mustJoin(t, c, connB, code, "")

	cerr := c.EndSession(connB, code)
	if cerr == nil || cerr.Code != errs.ErrNotHost {
		t.Errorf("Non-host ended the session: %v", cerr)
	}
	if !cerr.IsAuthorization() {
		t.Error("Host-only rejection not classified as authorization error")
	}
}

func TestEndSessionPurgesEverything(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	result := mustCreate(t, c, connA)
	code := result.User.SessionID
	mustJoin(t, c, connB, code, "")
	connB.reset()

	if cerr := c.EndSession(connA, code); cerr != nil {
		t.Fatalf("EndSession failed: %v", cerr)
	}

	if got := len(connB.framesByEvent(EventSessionEnded)); got != 1 {
		t.Errorf("Expected 1 session-ended frame for member, got %d", got)
	}
	if c.UserByConn(connA.ID()) != nil || c.UserByConn(connB.ID()) != nil {
		t.Error("Members survived end-session")
	}

	_, cerr := c.JoinSession(newFakeConn("conn-c"), code, "", "")
	if cerr == nil || cerr.Code != errs.ErrSessionNotFound {
		t.Errorf("Ended session still joinable: %v", cerr)
	}
}

func TestRemoveUser(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	result := mustCreate(t, c, connA)
	code := result.User.SessionID
	resultB := mustJoin(t, c, connB, code, "")

	if cerr := c.RemoveUser(connB, code, result.User.UUID); cerr == nil || cerr.Code != errs.ErrNotHost {
		t.Errorf("Non-host removed a member: %v", cerr)
	}

	if cerr := c.RemoveUser(connA, code, randx.NewUUID()); cerr == nil || cerr.Code != errs.ErrUserNotFound {
		t.Errorf("Removing an unknown uuid did not fail as user-not-found: %v", cerr)
	}

	connB.reset()
	if cerr := c.RemoveUser(connA, code, resultB.User.UUID); cerr != nil {
		t.Fatalf("Host failed to remove member: %v", cerr)
	}

	if got := len(connB.framesByEvent(EventRemovedFromSession)); got != 1 {
		t.Errorf("Removed member did not receive removed-from-session: got %d frames", got)
	}
	if c.UserByConn(connB.ID()) != nil {
		t.Error("Removed member still bound")
	}
}

func TestTransferHost(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	result := mustCreate(t, c, connA)
	code := result.User.SessionID
	resultB := mustJoin(t, c, connB, code, "")

	connA.reset()
	if cerr := c.TransferHost(connA, code, resultB.User.UUID); cerr != nil {
		t.Fatalf("TransferHost failed: %v", cerr)
	}

	hostChanges := connA.framesByEvent(EventHostChange)
	if len(hostChanges) != 1 {
		t.Fatalf("Expected 1 host-change after transfer, got %d", len(hostChanges))
	}
	if payload := hostChanges[0].Payload.(HostChangePayload); payload.UUID != resultB.User.UUID {
		t.Errorf("host-change names %s, expected %s", payload.UUID, resultB.User.UUID)
	}

	if u := c.UserByConn(connA.ID()); u == nil || u.IsHost {
		t.Error("Previous host kept the host flag")
	}
	if u := c.UserByConn(connB.ID()); u == nil || !u.IsHost {
		t.Error("New host did not receive the host flag")
	}
}

func TestUpdateProfileRejectsTakenColor(t *testing.T) {
	c := newTestCoordinator(time.Second, time.Minute)
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	result := mustCreate(t, c, connA)
	mustJoin(t, c, connB, result.User.SessionID, "")

	if cerr := c.UpdateProfile(connA, validate.Profile{Name: "Alice", Color: "#123abc"}); cerr != nil {
		t.Fatalf("UpdateProfile failed: %v", cerr)
	}

	cerr := c.UpdateProfile(connB, validate.Profile{Name: "Bob", Color: "#123abc"})
	if cerr == nil || cerr.Code != errs.ErrColorTaken {
		t.Errorf("Duplicate color accepted: %v", cerr)
	}

	if cerr := c.UpdateProfile(connB, validate.Profile{Name: "Bob", Color: "#abc123"}); cerr != nil {
		t.Errorf("Distinct color rejected: %v", cerr)
	}

	if u := c.UserByConn(connB.ID()); u == nil || !u.IsFullyRegistered {
		t.Error("Profile update did not mark user fully registered")
	}
}

func TestDisconnectEmitsStopTyping(t *testing.T) {
	c := newTestCoordinator(time.Minute, time.Minute)
	connA := newFakeConn("conn-a")
	connB := newFakeConn("conn-b")

	result := mustCreate(t, c, connA)
	mustJoin(t, c, connB, result.User.SessionID, "")

	connB.reset()
	c.HandleDisconnect(connA)

	stops := connB.framesByEvent(EventUserStopTyping)
	if len(stops) != 1 {
		t.Fatalf("Expected 1 user-stop-typing on disconnect, got %d", len(stops))
	}
	if payload := stops[0].Payload.(TypingPayload); payload.UUID != result.User.UUID {
		t.Errorf("Stop-typing names %s, expected %s", payload.UUID, result.User.UUID)
	}
}

// TestSessionLifecycleScenario walks the full create/join/reconnect/expiry/
// deletion sequence end to end.
func TestSessionLifecycleScenario(t *testing.T) {
	c := newTestCoordinator(120*time.Millisecond, 150*time.Millisecond)

	connA1 := newFakeConn("conn-a1")
	connB := newFakeConn("conn-b")

	// A creates a session and becomes host.
	resultA := mustCreate(t, c, connA1)
	code := resultA.User.SessionID
	uuidA := resultA.User.UUID

	// B joins; host-change is not re-fired.
	connA1.reset()
	resultB := mustJoin(t, c, connB, code, "")
	if got := len(connA1.framesByEvent(EventHostChange)); got != 0 {
		t.Fatalf("host-change re-fired when B joined: %d frames", got)
	}

	// A disconnects and reconnects within the grace window.
	c.HandleDisconnect(connA1)
	connB.reset()

	connA2 := newFakeConn("conn-a2")
	rejoined := mustJoin(t, c, connA2, code, uuidA)
	if !rejoined.User.IsHost {
		t.Fatal("A lost host status across reconnect")
	}
	if got := len(connB.framesByEvent(EventHostChange)); got != 0 {
		t.Fatalf("host-change fired during host reconnect: %d frames", got)
	}

	// A disconnects again and lets the grace timer lapse; B becomes host.
	connB.reset()
	c.HandleDisconnect(connA2)
	time.Sleep(400 * time.Millisecond)

	hostChanges := connB.framesByEvent(EventHostChange)
	if len(hostChanges) != 1 {
		t.Fatalf("Expected 1 host-change after A expired, got %d", len(hostChanges))
	}
	if payload := hostChanges[0].Payload.(HostChangePayload); payload.UUID != resultB.User.UUID {
		t.Fatalf("Expected B (%s) as new host, got %s", resultB.User.UUID, payload.UUID)
	}

	// B leaves; the empty session is eventually purged.
	if cerr := c.LeaveSession(connB, code); cerr != nil {
		t.Fatalf("B failed to leave: %v", cerr)
	}

	time.Sleep(400 * time.Millisecond)

	_, cerr := c.JoinSession(newFakeConn("conn-c"), code, "", "")
	if cerr == nil || cerr.Code != errs.ErrSessionNotFound {
		t.Fatalf("Session was not purged after everyone left: %v", cerr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.reg.users {
		if u.SessionID == code {
			t.Errorf("Residual user record %s survived session purge", u.UUID)
		}
	}
}
