package mpris

import (
	"fmt"
	"slices"

	"github.com/godbus/dbus/v5"
)

// TrackList is the façade for org.mpris.MediaPlayer2.TrackList.
// It only exists on *TrackListPlayer and *FullPlayer.
type TrackList struct {
	c *core
}

// Tracks returns the ordered track ids
func (t *TrackList) Tracks() []dbus.ObjectPath {
	defer t.c.lock()()
	return slices.Clone(t.c.trackList.tracks)
}

func (t *TrackList) CanEditTracks() bool {
	defer t.c.lock()()
	return t.c.trackList.canEditTracks
}

func (t *TrackList) SetCanEditTracks(v bool) error {
	return t.c.commit(func() (func(), error) {
		t.c.trackList.canEditTracks = v
		return t.c.changedLocked(InterfaceTrackList, "CanEditTracks"), nil
	})
}

// GetTracksMetadata asks the metadata provider about ids
func (t *TrackList) GetTracksMetadata(ids ...dbus.ObjectPath) ([]Metadata, error) {
	return t.c.tracksMetadata(ids)
}

// AddTrack asks the handler to insert uri after the given track
// (NoTrack for the start). Refused while CanEditTracks is false.
func (t *TrackList) AddTrack(uri string, after dbus.ObjectPath, setAsCurrent bool) error {
	return t.c.relay(AddTrackIntent{URI: uri, After: after, SetAsCurrent: setAsCurrent}, false)
}

// RemoveTrack asks the handler to remove id. Refused while CanEditTracks is false.
func (t *TrackList) RemoveTrack(id dbus.ObjectPath) error {
	return t.c.relay(RemoveTrackIntent{TrackID: id}, false)
}

// GoTo asks the handler to skip to id
func (t *TrackList) GoTo(id dbus.ObjectPath) error {
	return t.c.relay(GoToIntent{TrackID: id}, false)
}

// ReplaceTracks swaps the whole list and emits TrackListReplaced with current
// as the current track.
func (t *TrackList) ReplaceTracks(ids []dbus.ObjectPath, current dbus.ObjectPath) error {
	if err := validateTrackList(ids); err != nil {
		return err
	}
	if current != NoTrack && !slices.Contains(ids, current) {
		return invalid("Tracks", "current track %s is not in the list", current)
	}
	ids = slices.Clone(ids)
	return t.c.commit(func() (func(), error) {
		t.c.trackList.tracks = ids
		out := slices.Clone(ids)
		return func() {
			t.c.emitChanged(InterfaceTrackList, map[string]dbus.Variant{}, []string{"Tracks"})
			t.c.emitSignal(InterfaceTrackList, "TrackListReplaced", out, current)
		}, nil
	})
}

// TrackAdded inserts m after the given track (NoTrack for the start) and
// emits TrackAdded.
func (t *TrackList) TrackAdded(m Metadata, after dbus.ObjectPath) error {
	if m.IsZero() {
		return ErrNullMetadata
	}
	return t.c.commit(func() (func(), error) {
		st := &t.c.trackList
		if slices.Contains(st.tracks, m.trackID) {
			return nil, invalid("Tracks", "duplicate track id %s", m.trackID)
		}
		at := 0
		if after != NoTrack {
			i := slices.Index(st.tracks, after)
			if i < 0 {
				return nil, invalid("Tracks", "unknown track %s", after)
			}
			at = i + 1
		}
		st.tracks = slices.Insert(st.tracks, at, m.trackID)
		return func() {
			t.c.emitSignal(InterfaceTrackList, "TrackAdded", m.Variants(), after)
		}, nil
	})
}

// TrackRemoved drops id from the list and emits TrackRemoved
func (t *TrackList) TrackRemoved(id dbus.ObjectPath) error {
	return t.c.commit(func() (func(), error) {
		st := &t.c.trackList
		i := slices.Index(st.tracks, id)
		if i < 0 {
			return nil, invalid("Tracks", "unknown track %s", id)
		}
		st.tracks = slices.Delete(st.tracks, i, i+1)
		return func() {
			t.c.emitSignal(InterfaceTrackList, "TrackRemoved", id)
		}, nil
	})
}

// TrackMetadataChanged announces new metadata for id. If m carries a
// different track id, the list entry is renamed.
func (t *TrackList) TrackMetadataChanged(id dbus.ObjectPath, m Metadata) error {
	if m.IsZero() {
		return ErrNullMetadata
	}
	return t.c.commit(func() (func(), error) {
		st := &t.c.trackList
		i := slices.Index(st.tracks, id)
		if i < 0 {
			return nil, invalid("Tracks", "unknown track %s", id)
		}
		if m.trackID != id && slices.Contains(st.tracks, m.trackID) {
			return nil, invalid("Tracks", "duplicate track id %s", m.trackID)
		}
		st.tracks[i] = m.trackID
		return func() {
			t.c.emitSignal(InterfaceTrackList, "TrackMetadataChanged", id, m.Variants())
		}, nil
	})
}

func (c *core) tracksMetadata(ids []dbus.ObjectPath) (ms []Metadata, err error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if c.getTracksMetadata == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mpris: GetTracksMetadata provider panicked: %v", r)
		}
	}()
	return c.getTracksMetadata(slices.Clone(ids))
}
