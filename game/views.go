package game

// computePlayersView enumerates the non-admin members of roomName in join
// order. Players is never nil so an empty room still serializes as [].
func computePlayersView(tab *SessionTable, roomName string) PlayersView {
	players := make([]string, 0)
	for _, sess := range tab.InRoom(roomName) {
		if sess.Role == RoleAdmin {
			continue
		}
		players = append(players, sess.Username)
	}
	return PlayersView{Players: players, Count: len(players)}
}

// computeLineCountView buckets every non-admin member of roomName by
// reported line count. Values outside [0, MaxLineCount] are skipped; empty
// buckets are absent rather than empty.
func computeLineCountView(tab *SessionTable, roomName string) LineCountView {
	view := make(LineCountView)
	for _, sess := range tab.InRoom(roomName) {
		if sess.Role == RoleAdmin {
			continue
		}
		if sess.Progress < 0 || sess.Progress > MaxLineCount {
			continue
		}
		view[sess.Progress] = append(view[sess.Progress], sess.Username)
	}
	return view
}
