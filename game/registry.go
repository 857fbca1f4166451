package game

import (
	"time"

	"github.com/s0930s44/BINGO/domain"
)

// Draw bounds and the highest line count the aggregate view displays.
const (
	MinNumber = 1
	MaxNumber = 36

	MaxLineCount = 14
)

// scheduleFunc arms a deferred deletion for an idle room and returns the
// timer. The production implementation posts an expiry message back into the
// hub inbox when it fires.
type scheduleFunc func(roomName string, gen uint64, after time.Duration) *time.Timer

type room struct {
	name       string
	members    int
	admins     int
	drawn      []int
	drawnSet   map[int]struct{}
	hasStarted bool

	deleteTimer *time.Timer
	expiryGen   uint64
}

// cancelExpiry stops any pending deletion and advances the generation so a
// timer that already fired is recognized as stale.
func (rm *room) cancelExpiry() {
	if rm.deleteTimer != nil {
		rm.deleteTimer.Stop()
		rm.deleteTimer = nil
	}
	rm.expiryGen++
}

// Registry is the source of truth for which rooms exist, their member
// counts and their drawn numbers. It does no locking: the hub goroutine owns
// it and serializes every access.
type Registry struct {
	rooms       map[string]*room
	names       []string
	grace       time.Duration
	lockOnStart bool
	schedule    scheduleFunc
}

func NewRegistry(grace time.Duration, lockOnStart bool, schedule scheduleFunc) *Registry {
	return &Registry{
		rooms:       make(map[string]*room),
		grace:       grace,
		lockOnStart: lockOnStart,
		schedule:    schedule,
	}
}

// CreateOrJoin admits one connection into roomName. Admins create missing
// rooms; players need an existing room with at least one admin still online.
// A successful join cancels any pending idle deletion.
func (r *Registry) CreateOrJoin(roomName string, asAdmin bool) (created bool, err error) {
	rm, ok := r.rooms[roomName]
	if !ok {
		if !asAdmin {
			return false, domain.ErrRoomNotFound
		}
		rm = &room{name: roomName, members: 1, admins: 1, drawnSet: make(map[int]struct{})}
		r.rooms[roomName] = rm
		r.names = append(r.names, roomName)
		return true, nil
	}
	if !asAdmin {
		if rm.admins == 0 {
			return false, domain.ErrNoAdminOnline
		}
		if r.lockOnStart && rm.hasStarted {
			return false, domain.ErrRoomLocked
		}
	}
	rm.cancelExpiry()
	rm.members++
	if asAdmin {
		rm.admins++
	}
	return false, nil
}

// RecordDraw appends number to roomName's draw sequence and marks the game
// started. Out-of-range and repeated numbers are rejected without touching
// the sequence.
func (r *Registry) RecordDraw(roomName string, number int) error {
	rm, ok := r.rooms[roomName]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if number < MinNumber || number > MaxNumber {
		return domain.ErrInvalidNumber
	}
	if _, drawn := rm.drawnSet[number]; drawn {
		return domain.ErrDuplicateNumber
	}
	rm.drawn = append(rm.drawn, number)
	rm.drawnSet[number] = struct{}{}
	rm.hasStarted = true
	return nil
}

// Leave decrements roomName's counters. When the last member leaves, the
// room is deleted immediately, or scheduled for deletion after the grace
// window when one is configured.
func (r *Registry) Leave(roomName string, wasAdmin bool) (deleted bool) {
	rm, ok := r.rooms[roomName]
	if !ok {
		return false
	}
	if rm.members > 0 {
		rm.members--
	}
	if wasAdmin && rm.admins > 0 {
		rm.admins--
	}
	if rm.members > 0 {
		return false
	}
	if r.grace == 0 {
		r.remove(roomName)
		return true
	}
	r.armExpiry(rm)
	return false
}

// ExpireIfIdle deletes roomName if the expiry is still current. A timer that
// lost the race against a rejoin carries an outdated generation and is
// discarded here.
func (r *Registry) ExpireIfIdle(roomName string, gen uint64) (deleted bool) {
	rm, ok := r.rooms[roomName]
	if !ok || rm.expiryGen != gen || rm.members > 0 {
		return false
	}
	r.remove(roomName)
	return true
}

// ReconcileCounts overwrites roomName's counters with values recomputed from
// the session table. A room corrected down to zero members gets the same
// deletion policy Leave applies.
func (r *Registry) ReconcileCounts(roomName string, members, admins int) (drifted, deleted bool) {
	rm, ok := r.rooms[roomName]
	if !ok {
		return false, false
	}
	drifted = rm.members != members || rm.admins != admins
	rm.members = members
	rm.admins = admins
	if members > 0 {
		return drifted, false
	}
	if r.grace == 0 {
		r.remove(roomName)
		return drifted, true
	}
	if rm.deleteTimer == nil {
		r.armExpiry(rm)
	}
	return drifted, false
}

// RoomNames returns the active room names in creation order.
func (r *Registry) RoomNames() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// DrawnNumbers returns a copy of roomName's draw sequence in call order.
func (r *Registry) DrawnNumbers(roomName string) []int {
	rm, ok := r.rooms[roomName]
	if !ok {
		return nil
	}
	drawn := make([]int, len(rm.drawn))
	copy(drawn, rm.drawn)
	return drawn
}

// DrawCount returns how many numbers roomName has drawn so far.
func (r *Registry) DrawCount(roomName string) int {
	rm, ok := r.rooms[roomName]
	if !ok {
		return 0
	}
	return len(rm.drawn)
}

// MemberCount reports roomName's live member total.
func (r *Registry) MemberCount(roomName string) (int, bool) {
	rm, ok := r.rooms[roomName]
	if !ok {
		return 0, false
	}
	return rm.members, true
}

// HasStarted reports whether roomName has drawn at least one number.
func (r *Registry) HasStarted(roomName string) bool {
	rm, ok := r.rooms[roomName]
	return ok && rm.hasStarted
}

// RoomSnapshot captures one room's registry truth for the storage sync pass.
type RoomSnapshot struct {
	Record domain.RoomRecord
	Drawn  []int
}

// Snapshot copies every room's record and draw sequence in creation order.
func (r *Registry) Snapshot() []RoomSnapshot {
	snaps := make([]RoomSnapshot, 0, len(r.names))
	for _, name := range r.names {
		rm := r.rooms[name]
		drawn := make([]int, len(rm.drawn))
		copy(drawn, rm.drawn)
		snaps = append(snaps, RoomSnapshot{
			Record: domain.RoomRecord{Name: name, MemberCount: rm.members, HasStarted: rm.hasStarted},
			Drawn:  drawn,
		})
	}
	return snaps
}

func (r *Registry) roomRecord(roomName string) (domain.RoomRecord, bool) {
	rm, ok := r.rooms[roomName]
	if !ok {
		return domain.RoomRecord{}, false
	}
	return domain.RoomRecord{Name: rm.name, MemberCount: rm.members, HasStarted: rm.hasStarted}, true
}

func (r *Registry) armExpiry(rm *room) {
	rm.cancelExpiry()
	if r.schedule != nil {
		rm.deleteTimer = r.schedule(rm.name, rm.expiryGen, r.grace)
	}
}

func (r *Registry) remove(roomName string) {
	rm, ok := r.rooms[roomName]
	if !ok {
		return
	}
	rm.cancelExpiry()
	delete(r.rooms, roomName)
	for i, name := range r.names {
		if name == roomName {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
}
