package sonos

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	statePlaying       = "PLAYING"
	stateTransitioning = "TRANSITIONING"
)

// Monitor turns noisy zone snapshots into a stable playing signal for one
// room. Snapshots are cached for a short TTL and kept when the upstream call
// fails; hysteresis bridges track boundaries and transient API hiccups.
// All state is owned by the monitor and mutated only by its own polls.
type Monitor struct {
	client *Client
	room   string

	cacheTTL       time.Duration
	grace          time.Duration
	transitionHold time.Duration

	now func() time.Time

	lastZones     []ZoneGroup
	lastZonesAt   time.Time
	hasSnapshot   bool
	lastConfirmed time.Time

	warnedNoRoom bool
}

// NewMonitor creates a playback monitor for the given room
func NewMonitor(client *Client, room string, cacheTTL, grace, transitionHold time.Duration) *Monitor {
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Second
	}
	if grace == 0 {
		grace = 5 * time.Second
	}
	if transitionHold == 0 {
		transitionHold = 20 * time.Second
	}

	return &Monitor{
		client:         client,
		room:           room,
		cacheTTL:       cacheTTL,
		grace:          grace,
		transitionHold: transitionHold,
		now:            time.Now,
	}
}

// IsPlaying reports whether music is actively playing in the monitor's room.
// Upstream failures and malformed payloads degrade to the cached snapshot or
// to "not playing"; they are never propagated.
func (m *Monitor) IsPlaying(ctx context.Context) bool {
	if m.room == "" {
		if !m.warnedNoRoom {
			log.Warn().Msg("Playback detection disabled: no room configured")
			m.warnedNoRoom = true
		}
		return false
	}

	now := m.now()
	zones := m.snapshot(ctx, now)

	group := findGroup(zones, m.room)
	if group == nil {
		return false
	}

	// Prefer the coordinator's transport state; without a flagged
	// coordinator, any member counts.
	members := group.Members
	if c := group.Coordinator(); c != nil {
		members = []Member{*c}
	}

	playing := false
	transitioning := false
	for i := range members {
		member := &members[i]
		if !member.HasTrack() {
			continue
		}
		switch member.TransportState() {
		case statePlaying:
			playing = true
		case stateTransitioning:
			transitioning = true
		}
		if playing {
			break
		}
	}

	if playing {
		m.lastConfirmed = now
		return true
	}

	sinceConfirmed := now.Sub(m.lastConfirmed)
	if m.lastConfirmed.IsZero() {
		return false
	}
	if transitioning && sinceConfirmed < m.transitionHold {
		return true
	}
	return sinceConfirmed < m.grace
}

// snapshot returns the cached zones, refreshing when the TTL has expired.
// On failure the previous snapshot is kept so a flaky upstream does not
// flap the signal; with no snapshot at all the result is "no zones".
func (m *Monitor) snapshot(ctx context.Context, now time.Time) []ZoneGroup {
	if m.hasSnapshot && now.Sub(m.lastZonesAt) < m.cacheTTL {
		return m.lastZones
	}

	zones, err := m.client.Zones(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Zones request failed")
		if m.hasSnapshot {
			return m.lastZones
		}
		return nil
	}

	m.lastZones = zones
	m.lastZonesAt = now
	m.hasSnapshot = true
	return zones
}

func findGroup(zones []ZoneGroup, room string) *ZoneGroup {
	for i := range zones {
		if zones[i].HasRoom(room) {
			return &zones[i]
		}
	}
	return nil
}
