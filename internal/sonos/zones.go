package sonos

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Track is the currently loaded item on a member
type Track struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// MemberState carries the transport state of one group member. The upstream
// API reports the state under several keys depending on version and playback
// path, so all of them are kept.
type MemberState struct {
	ZoneState     string `json:"zoneState"`
	PlaybackState string `json:"playbackState"`
	PlayerState   string `json:"playerState"`
	CurrentTrack  Track  `json:"currentTrack"`
}

// Member is one player inside a zone group
type Member struct {
	RoomName    string      `json:"roomName"`
	Coordinator bool        `json:"coordinator"`
	State       MemberState `json:"state"`
}

// TransportState returns the member's effective transport state, preferring
// the zone-level state because player-level state can remain PLAYING during
// paused handoff scenarios. The result is trimmed and upper-cased.
func (m *Member) TransportState() string {
	for _, raw := range []string{m.State.ZoneState, m.State.PlaybackState, m.State.PlayerState} {
		if s := strings.TrimSpace(raw); s != "" {
			return strings.ToUpper(s)
		}
	}
	return ""
}

// HasTrack reports whether the member has an actual music track loaded. This
// guards against false positives from line-in and other non-track sources.
func (m *Member) HasTrack() bool {
	return m.State.CurrentTrack.Type == "track" && m.State.CurrentTrack.Title != ""
}

// ZoneGroup is a snapshot of one synchronized speaker group
type ZoneGroup struct {
	Members []Member
}

// Coordinator returns the group's coordinator member, if flagged
func (z *ZoneGroup) Coordinator() *Member {
	for i := range z.Members {
		if z.Members[i].Coordinator {
			return &z.Members[i]
		}
	}
	return nil
}

// HasRoom reports whether the group contains the given room
func (z *ZoneGroup) HasRoom(room string) bool {
	for i := range z.Members {
		if z.Members[i].RoomName == room {
			return true
		}
	}
	return false
}

// decodeZones parses a zones payload defensively. The top level must be a
// JSON array; inside it every zone and every member is decoded independently
// so that one malformed element degrades to "not found" instead of discarding
// the whole snapshot.
func decodeZones(data []byte) ([]ZoneGroup, error) {
	var rawZones []json.RawMessage
	if err := json.Unmarshal(data, &rawZones); err != nil {
		return nil, fmt.Errorf("unexpected zones payload: %w", err)
	}

	zones := make([]ZoneGroup, 0, len(rawZones))
	for _, rawZone := range rawZones {
		var zone struct {
			Members []json.RawMessage `json:"members"`
		}
		if err := json.Unmarshal(rawZone, &zone); err != nil {
			continue
		}

		var group ZoneGroup
		for _, rawMember := range zone.Members {
			var member Member
			if err := json.Unmarshal(rawMember, &member); err != nil {
				continue
			}
			group.Members = append(group.Members, member)
		}
		zones = append(zones, group)
	}

	return zones, nil
}
