package game

import (
	"github.com/segmentio/encoding/json"
)

// Inbound event names (client → server).
const (
	EventLogin            = "login"
	EventRequestRoomsList = "requestRoomsList"
	EventDrawNumber       = "drawNumber"
	EventUpdateLineCount  = "updateLineCount"
)

// Outbound event names (server → client).
const (
	EventRoomsListUpdate = "roomsListUpdate"
	EventLoginSuccess    = "loginSuccess"
	EventLoginError      = "loginError"
	EventErrorMessage    = "errorMessage"
	EventNumberDrawn     = "numberDrawn"
	EventLockCards       = "lockCards"
	EventPlayersUpdate   = "playersUpdate"
	EventLineCountUpdate = "lineCountUpdate"
)

// Envelope is the wire frame: one JSON object per websocket message, a named
// event plus its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type LoginRequest struct {
	Username    string `json:"username"`
	Room        string `json:"room"`
	IsAdmin     bool   `json:"isAdmin"`
	AdminSecret string `json:"adminSecret,omitempty"`
}

type LoginSuccess struct {
	Room    string `json:"room"`
	IsAdmin bool   `json:"isAdmin"`
}

type LoginError struct {
	Message string `json:"message"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

type DrawNumberRequest struct {
	Number int `json:"number"`
}

type NumberDrawn struct {
	Number int `json:"number"`
}

type UpdateLineCountRequest struct {
	LineCount int `json:"lineCount"`
}

type RoomsList struct {
	RoomNames []string `json:"roomNames"`
}

// PlayersView lists the non-admin members of a room in join order.
type PlayersView struct {
	Players []string `json:"players"`
	Count   int      `json:"count"`
}

// LineCountView buckets player usernames by their reported line count.
// Only buckets in [0, MaxLineCount] ever appear.
type LineCountView map[int][]string

func encodeEvent(event string, payload any) ([]byte, error) {
	var (
		raw json.RawMessage
		err error
	)
	if payload != nil {
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

func decodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
