package game

import (
	"strings"

	"github.com/s0930s44/BINGO/domain"
)

type Role int

const (
	RolePlayer Role = iota
	RoleAdmin
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "player"
}

// Session is the server-side record of one logged-in connection.
type Session struct {
	ConnID   string
	Username string
	Room     string
	Role     Role
	Progress int
}

// SessionTable maps connection ids to sessions. Iteration follows insertion
// order, which the aggregate views rely on. Like the registry it is owned by
// the hub goroutine and does no locking of its own.
type SessionTable struct {
	sessions map[string]*Session
	order    []string
	verifier SecretVerifier
}

func NewSessionTable(verifier SecretVerifier) *SessionTable {
	return &SessionTable{
		sessions: make(map[string]*Session),
		verifier: verifier,
	}
}

// Login validates the request, checks the admin passphrase before consulting
// the registry so a wrong secret reveals nothing about which rooms exist,
// then delegates admission. On failure no state is touched.
func (t *SessionTable) Login(connID, username, roomName string, isAdmin bool, adminSecret string, reg *Registry) (sess *Session, created bool, err error) {
	if _, ok := t.sessions[connID]; ok {
		return nil, false, domain.ErrAlreadyLoggedIn
	}
	username = strings.TrimSpace(username)
	roomName = strings.TrimSpace(roomName)
	if username == "" || roomName == "" {
		return nil, false, domain.ErrValidation
	}
	if isAdmin && !t.verifier.Verify(adminSecret) {
		return nil, false, domain.ErrInvalidAdminSecret
	}
	created, err = reg.CreateOrJoin(roomName, isAdmin)
	if err != nil {
		return nil, false, err
	}
	sess = &Session{ConnID: connID, Username: username, Room: roomName, Role: roleOf(isAdmin)}
	t.sessions[connID] = sess
	t.order = append(t.order, connID)
	return sess, created, nil
}

// RecordProgress stores the line count a player reported. Unknown
// connections and admins are ignored. Out-of-range values are stored as
// reported; the aggregate view just never displays them.
func (t *SessionTable) RecordProgress(connID string, lineCount int) bool {
	sess, ok := t.sessions[connID]
	if !ok || sess.Role == RoleAdmin {
		return false
	}
	sess.Progress = lineCount
	return true
}

// Remove drops the session for connID and returns it.
func (t *SessionTable) Remove(connID string) (*Session, bool) {
	sess, ok := t.sessions[connID]
	if !ok {
		return nil, false
	}
	delete(t.sessions, connID)
	for i, id := range t.order {
		if id == connID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return sess, true
}

func (t *SessionTable) Get(connID string) (*Session, bool) {
	sess, ok := t.sessions[connID]
	return sess, ok
}

// InRoom returns the sessions bound to roomName in login order.
func (t *SessionTable) InRoom(roomName string) []*Session {
	var members []*Session
	for _, id := range t.order {
		if sess := t.sessions[id]; sess.Room == roomName {
			members = append(members, sess)
		}
	}
	return members
}

// CountsInRoom recomputes the live member and admin totals for roomName. The
// reconciliation sweep uses it to correct registry drift.
func (t *SessionTable) CountsInRoom(roomName string) (members, admins int) {
	for _, sess := range t.sessions {
		if sess.Room != roomName {
			continue
		}
		members++
		if sess.Role == RoleAdmin {
			admins++
		}
	}
	return members, admins
}

func (t *SessionTable) Len() int {
	return len(t.sessions)
}

func roleOf(isAdmin bool) Role {
	if isAdmin {
		return RoleAdmin
	}
	return RolePlayer
}
