package session

import "sort"

// binding ties a transport connection to the identity acting through it.
type binding struct {
	uuid string
	conn Conn
}

// registry holds the authoritative in-memory state: users by uuid, connection
// bindings by connection ID, and the set of live session codes. It is not
// self-locking; the owning Coordinator serializes all access behind its mutex.
// There is no separate membership list: membership is derived by scanning users
// whose SessionID matches.
type registry struct {
	users    map[string]*User
	conns    map[string]*binding
	sessions map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		users:    make(map[string]*User),
		conns:    make(map[string]*binding),
		sessions: make(map[string]struct{}),
	}
}

// sessionExists reports whether the session code is currently live.
func (r *registry) sessionExists(code string) bool {
	_, ok := r.sessions[code]
	return ok
}

// userByConn resolves the acting user for a connection, or nil if the
// connection has no binding or the bound identity no longer exists.
func (r *registry) userByConn(connID string) *User {
	b, ok := r.conns[connID]
	if !ok {
		return nil
	}
	return r.users[b.uuid]
}

// membersOf returns the session's members ordered by join time, ties broken by
// uuid. The order is the election order, so it must be deterministic.
func (r *registry) membersOf(code string) []*User {
	var members []*User
	for _, u := range r.users {
		if u.SessionID == code {
			members = append(members, u)
		}
	}

	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].UUID < members[j].UUID
	})

	return members
}

// memberCount returns the number of identities currently in the session.
func (r *registry) memberCount(code string) int {
	count := 0
	for _, u := range r.users {
		if u.SessionID == code {
			count++
		}
	}
	return count
}

// hostOf returns the session member holding host privileges, or nil.
func (r *registry) hostOf(code string) *User {
	for _, u := range r.users {
		if u.SessionID == code && u.IsHost {
			return u
		}
	}
	return nil
}

// memberByUUID returns the user if it exists and belongs to the session.
func (r *registry) memberByUUID(code string, uuid string) *User {
	u, ok := r.users[uuid]
	if !ok || u.SessionID != code {
		return nil
	}
	return u
}

// snapshotMembers copies the session's membership for publication.
func (r *registry) snapshotMembers(code string) []User {
	members := r.membersOf(code)
	out := make([]User, 0, len(members))
	for _, u := range members {
		out = append(out, *u)
	}
	return out
}
