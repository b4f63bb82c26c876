package mpris

import "fmt"

// PlaybackStatus is the value of the Player.PlaybackStatus property
type PlaybackStatus string

const (
	Playing PlaybackStatus = "Playing"
	Paused  PlaybackStatus = "Paused"
	Stopped PlaybackStatus = "Stopped"
)

// String returns the wire representation of the status
func (s PlaybackStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the three protocol values
func (s PlaybackStatus) Valid() bool {
	return s == Playing || s == Paused || s == Stopped
}

// ParsePlaybackStatus converts a wire string into a PlaybackStatus
func ParsePlaybackStatus(s string) (PlaybackStatus, error) {
	status := PlaybackStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown playback status %q", s)
	}
	return status, nil
}

// LoopStatus is the value of the Player.LoopStatus property
type LoopStatus string

const (
	LoopNone     LoopStatus = "None"
	LoopTrack    LoopStatus = "Track"
	LoopPlaylist LoopStatus = "Playlist"
)

// String returns the wire representation of the loop status
func (l LoopStatus) String() string {
	return string(l)
}

// Valid reports whether l is one of the three protocol values
func (l LoopStatus) Valid() bool {
	return l == LoopNone || l == LoopTrack || l == LoopPlaylist
}

// Next returns the loop status that follows l in None → Track → Playlist order
func (l LoopStatus) Next() LoopStatus {
	switch l {
	case LoopNone:
		return LoopTrack
	case LoopTrack:
		return LoopPlaylist
	default:
		return LoopNone
	}
}

// ParseLoopStatus converts a wire string into a LoopStatus
func ParseLoopStatus(s string) (LoopStatus, error) {
	status := LoopStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown loop status %q", s)
	}
	return status, nil
}

// PlaylistOrdering names a sort order offered by the Playlists interface
type PlaylistOrdering string

const (
	OrderAlphabetical PlaylistOrdering = "Alphabetical"
	OrderCreationDate PlaylistOrdering = "Created"
	OrderModifiedDate PlaylistOrdering = "Modified"
	OrderLastPlayDate PlaylistOrdering = "Played"
	OrderUserDefined  PlaylistOrdering = "User"
)

func (o PlaylistOrdering) String() string {
	return string(o)
}

// Valid reports whether o is one of the orderings defined by the protocol
func (o PlaylistOrdering) Valid() bool {
	switch o {
	case OrderAlphabetical, OrderCreationDate, OrderModifiedDate, OrderLastPlayDate, OrderUserDefined:
		return true
	}
	return false
}

// ParsePlaylistOrdering converts a wire string into a PlaylistOrdering
func ParsePlaylistOrdering(s string) (PlaylistOrdering, error) {
	o := PlaylistOrdering(s)
	if !o.Valid() {
		return "", fmt.Errorf("unknown playlist ordering %q", s)
	}
	return o, nil
}
