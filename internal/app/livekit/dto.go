package livekit

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Room: комната в том виде, в каком её отдаёт /api/rooms.
type Room struct {
	Name            string          `json:"name"`
	SID             string          `json:"sid"`
	NumParticipants uint32          `json:"numParticipants"`
	MaxParticipants uint32          `json:"maxParticipants"`
	CreationTime    *int64          `json:"creationTime"` // ms
	Metadata        json.RawMessage `json:"metadata"`
	Participants    []Participant   `json:"participants"`
}

type Participant struct {
	Identity string          `json:"identity"`
	Name     string          `json:"name"`
	SID      string          `json:"sid"`
	State    int32           `json:"state"`
	JoinedAt *int64          `json:"joinedAt"` // ms
	Tracks   []Track         `json:"tracks"`
	Metadata json.RawMessage `json:"metadata"`
}

type Track struct {
	SID    string `json:"sid"`
	Type   int32  `json:"type"`
	Name   string `json:"name"`
	Muted  bool   `json:"muted"`
	Source int32  `json:"source"`
}

type RoomsList struct {
	Rooms []Room `json:"rooms"`
	Count int    `json:"count"`
}

// ---- wire (twirp JSON) ----

type listRoomsResp struct {
	Rooms []wireRoom `json:"rooms"`
}

type listParticipantsResp struct {
	Participants []wireParticipant `json:"participants"`
}

type wireRoom struct {
	SID             string  `json:"sid"`
	Name            string  `json:"name"`
	MaxParticipants flexInt `json:"max_participants"`
	CreationTime    flexInt `json:"creation_time"`
	Metadata        string  `json:"metadata"`
	NumParticipants flexInt `json:"num_participants"`
}

type wireParticipant struct {
	SID      string      `json:"sid"`
	Identity string      `json:"identity"`
	State    flexEnum    `json:"state"`
	Tracks   []wireTrack `json:"tracks"`
	Metadata string      `json:"metadata"`
	JoinedAt flexInt     `json:"joined_at"`
	Name     string      `json:"name"`
}

type wireTrack struct {
	SID    string   `json:"sid"`
	Type   flexEnum `json:"type"`
	Name   string   `json:"name"`
	Muted  bool     `json:"muted"`
	Source flexEnum `json:"source"`
}

type twirpError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

var (
	participantStates = map[string]int32{"JOINING": 0, "JOINED": 1, "ACTIVE": 2, "DISCONNECTED": 3}
	trackTypes        = map[string]int32{"AUDIO": 0, "VIDEO": 1, "DATA": 2}
	trackSources      = map[string]int32{
		"UNKNOWN": 0, "CAMERA": 1, "MICROPHONE": 2, "SCREEN_SHARE": 3, "SCREEN_SHARE_AUDIO": 4,
	}
)

// flexInt: protojson пишет int64 строкой, uint32 числом.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// flexEnum хранит либо число, либо имя значения enum; переводится через таблицу.
type flexEnum struct {
	num  int32
	name string
}

func (e *flexEnum) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.name)
	}
	if string(b) == "null" {
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 32)
	if err != nil {
		return err
	}
	e.num = int32(n)
	return nil
}

func (e flexEnum) value(names map[string]int32) int32 {
	if e.name == "" {
		return e.num
	}
	return names[e.name]
}

// secondsToMillis: 0 значит «нет значения».
func secondsToMillis(s flexInt) *int64 {
	if s == 0 {
		return nil
	}
	ms := int64(s) * 1000
	return &ms
}

// metadataJSON: валидный JSON отдаём как есть, иначе строкой; пустое значение становится null.
func metadataJSON(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("null")
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	b, _ := json.Marshal(s)
	return b
}

func mapRoom(r wireRoom) Room {
	return Room{
		Name:            r.Name,
		SID:             r.SID,
		NumParticipants: uint32(r.NumParticipants),
		MaxParticipants: uint32(r.MaxParticipants),
		CreationTime:    secondsToMillis(r.CreationTime),
		Metadata:        metadataJSON(r.Metadata),
		Participants:    []Participant{},
	}
}

func mapParticipant(p wireParticipant) Participant {
	out := Participant{
		Identity: p.Identity,
		Name:     p.Name,
		SID:      p.SID,
		State:    p.State.value(participantStates),
		JoinedAt: secondsToMillis(p.JoinedAt),
		Tracks:   make([]Track, 0, len(p.Tracks)),
		Metadata: metadataJSON(p.Metadata),
	}
	for _, t := range p.Tracks {
		out.Tracks = append(out.Tracks, Track{
			SID:    t.SID,
			Type:   t.Type.value(trackTypes),
			Name:   t.Name,
			Muted:  t.Muted,
			Source: t.Source.value(trackSources),
		})
	}
	return out
}
