package media

import (
	"fmt"
	"strings"
)

// Track is one elementary stream of a container.
type Track struct {
	Index  int
	Format Format
}

// TrackGroup holds the tracks a container presents as variants of the same
// content. A group is never empty.
type TrackGroup struct {
	id     string
	tracks []Track
}

// NewTrackGroup panics when no tracks are given.
func NewTrackGroup(id string, tracks ...Track) TrackGroup {
	if len(tracks) == 0 {
		panic("media: track group must contain at least one track")
	}
	return TrackGroup{id: id, tracks: append([]Track(nil), tracks...)}
}

func (g TrackGroup) ID() string { return g.id }

func (g TrackGroup) Len() int { return len(g.tracks) }

// Get returns the track at index i within the group.
func (g TrackGroup) Get(i int) Track { return g.tracks[i] }

// Format is a shorthand for Get(i).Format.
func (g TrackGroup) Format(i int) Format { return g.tracks[i].Format }

// Type returns the track type of the first track.
func (g TrackGroup) Type() TrackType { return g.tracks[0].Format.TrackType() }

func (g TrackGroup) Equal(other TrackGroup) bool {
	if g.id != other.id || len(g.tracks) != len(other.tracks) {
		return false
	}
	for i := range g.tracks {
		if g.tracks[i].Index != other.tracks[i].Index || !g.tracks[i].Format.Equal(other.tracks[i].Format) {
			return false
		}
	}
	return true
}

// TrackGroupArray is the immutable result of a retrieval.
type TrackGroupArray struct {
	groups []TrackGroup
}

func NewTrackGroupArray(groups ...TrackGroup) TrackGroupArray {
	return TrackGroupArray{groups: append([]TrackGroup(nil), groups...)}
}

func (a TrackGroupArray) Len() int { return len(a.groups) }

func (a TrackGroupArray) Get(i int) TrackGroup { return a.groups[i] }

// Groups returns a copy of the groups in discovery order.
func (a TrackGroupArray) Groups() []TrackGroup {
	return append([]TrackGroup(nil), a.groups...)
}

// IndexOf returns the position of the group with the given id, or -1.
func (a TrackGroupArray) IndexOf(id string) int {
	for i, g := range a.groups {
		if g.id == id {
			return i
		}
	}
	return -1
}

func (a TrackGroupArray) Equal(other TrackGroupArray) bool {
	if len(a.groups) != len(other.groups) {
		return false
	}
	for i := range a.groups {
		if !a.groups[i].Equal(other.groups[i]) {
			return false
		}
	}
	return true
}

func (a TrackGroupArray) String() string {
	parts := make([]string, 0, len(a.groups))
	for _, g := range a.groups {
		formats := make([]string, 0, len(g.tracks))
		for _, t := range g.tracks {
			formats = append(formats, t.Format.String())
		}
		parts = append(parts, fmt.Sprintf("%s[%s]", g.id, strings.Join(formats, ", ")))
	}
	return "TrackGroupArray{" + strings.Join(parts, ", ") + "}"
}
