package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"nowserving/mpris"
)

const (
	idleTrackID = dbus.ObjectPath(trackPathPrefix + "idle")

	// Previous restarts the current track instead once it has played this long
	restartThreshold = 3 * time.Second
)

// errQuit is returned by handle when a controller asked the player to quit
var errQuit = errors.New("quit requested")

type queueEntry struct {
	id    dbus.ObjectPath
	track LibraryTrack
	meta  mpris.Metadata
}

// host owns the play queue and turns intents into state changes on the
// published player. Playback itself is simulated: the position advances
// with the clock while the status is Playing.
type host struct {
	lib *Library
	log *log.Logger
	rng *rand.Rand

	mu      sync.Mutex
	entries []queueEntry
	current int // -1 while the queue is empty

	p   *mpris.Player
	tl  *mpris.TrackList
	pls *mpris.Playlists
}

// newHost queues every library track in library order
func newHost(lib *Library, logger *log.Logger) (*host, error) {
	h := &host{
		lib:     lib,
		log:     logger,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		current: -1,
	}
	entries, err := h.newEntries(lib.Tracks)
	if err != nil {
		return nil, err
	}
	h.entries = entries
	if len(entries) > 0 {
		h.current = 0
	}
	return h, nil
}

func (h *host) newEntries(tracks []LibraryTrack) ([]queueEntry, error) {
	entries := make([]queueEntry, 0, len(tracks))
	for _, t := range tracks {
		e, err := newEntry(t)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func newEntry(t LibraryTrack) (queueEntry, error) {
	id := newTrackID()
	m, err := t.metadata(id)
	if err != nil {
		return queueEntry{}, fmt.Errorf("track %s: %w", t.File, err)
	}
	return queueEntry{id: id, track: t, meta: m}, nil
}

func idleMetadata() mpris.Metadata {
	m, _ := mpris.Track(idleTrackID, "Nothing queued", "")
	return m
}

// declare describes the player's initial state to mpris.Simple
func (h *host) declare(cfg Config) func(*mpris.Declaration) {
	return func(d *mpris.Declaration) {
		h.mu.Lock()
		defer h.mu.Unlock()

		d.MediaPlayer2(func(b *mpris.BaseConfig) {
			b.DesktopEntry = cfg.Player.DesktopEntry
			b.CanQuit = cfg.Capabilities.CanQuit
			b.CanRaise = cfg.Capabilities.CanRaise
		})
		d.Player(func(p *mpris.PlayerConfig) {
			m := h.currentMetadataLocked()
			p.Metadata = &m
			p.MinimumRate = 0.5
			p.MaximumRate = 2
			p.Volume = 1

			caps := h.capsLocked(mpris.LoopNone, false)
			p.CanGoNext = caps.CanGoNext
			p.CanGoPrevious = caps.CanGoPrevious
			p.CanPlay = caps.CanPlay
			p.CanPause = caps.CanPause
			p.CanSeek = caps.CanSeek
		})
		if cfg.Capabilities.TrackList {
			d.TrackList(func(t *mpris.TrackListConfig) {
				t.Tracks = h.idsLocked()
				t.CanEditTracks = cfg.Capabilities.CanEditTracks
				t.OnGetTracksMetadata = h.tracksMetadata
			})
		}
		if cfg.Capabilities.Playlists {
			d.Playlists(func(p *mpris.PlaylistsConfig) {
				p.PlaylistCount = uint32(len(h.lib.Playlists))
				p.Orderings = []mpris.PlaylistOrdering{mpris.OrderAlphabetical, mpris.OrderUserDefined}
				p.ActivePlaylist = &mpris.MaybePlaylist{}
				p.OnGetPlaylists = h.lib.Page
			})
		}
	}
}

// attach binds the façades of the published player
func (h *host) attach(mp mpris.MediaPlayer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch mp := mp.(type) {
	case *mpris.Player:
		h.p = mp
	case *mpris.TrackListPlayer:
		h.p, h.tl = mp.Player, mp.TrackList
	case *mpris.PlaylistsPlayer:
		h.p, h.pls = mp.Player, mp.Playlists
	case *mpris.FullPlayer:
		h.p, h.tl, h.pls = mp.Player, mp.TrackList, mp.Playlists
	}
}

// queuePosition returns the 1-based index of the current track and the
// queue length
func (h *host) queuePosition() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current + 1, len(h.entries)
}

// handle applies one intent
func (h *host) handle(in mpris.Intent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch in := in.(type) {
	case mpris.RaiseIntent:
		h.log.Printf("raise requested")
		return nil
	case mpris.QuitIntent:
		return errQuit
	case mpris.SetFullscreenIntent:
		return h.p.SetFullscreen(in.Fullscreen)

	case mpris.PlayIntent:
		if h.current < 0 {
			return nil
		}
		return h.p.SetPlaybackStatus(mpris.Playing)
	case mpris.PauseIntent:
		return h.p.SetPlaybackStatus(mpris.Paused)
	case mpris.PlayPauseIntent:
		if h.p.PlaybackStatus() == mpris.Playing {
			return h.p.SetPlaybackStatus(mpris.Paused)
		}
		if h.current < 0 {
			return nil
		}
		return h.p.SetPlaybackStatus(mpris.Playing)
	case mpris.StopIntent:
		return h.stopLocked()
	case mpris.NextIntent:
		return h.nextLocked()
	case mpris.PreviousIntent:
		return h.previousLocked()
	case mpris.SeekIntent:
		return h.seekLocked(h.p.Position() + in.Offset)
	case mpris.SetPositionIntent:
		return h.seekLocked(in.Position)
	case mpris.OpenURIIntent:
		return h.openLocked(in.URI)

	case mpris.SetLoopStatusIntent:
		if err := h.p.SetLoopStatus(in.LoopStatus); err != nil {
			return err
		}
		return h.refreshCapsLocked()
	case mpris.SetRateIntent:
		return h.p.SetRate(in.Rate)
	case mpris.SetShuffleIntent:
		if err := h.p.SetShuffle(in.Shuffle); err != nil {
			return err
		}
		return h.refreshCapsLocked()
	case mpris.SetVolumeIntent:
		return h.p.SetVolume(in.Volume)

	case mpris.AddTrackIntent:
		return h.addLocked(in.URI, in.After, in.SetAsCurrent)
	case mpris.RemoveTrackIntent:
		return h.removeLocked(in.TrackID)
	case mpris.GoToIntent:
		i := h.indexLocked(in.TrackID)
		if i < 0 {
			return fmt.Errorf("unknown track %s", in.TrackID)
		}
		return h.selectLocked(i, h.p.PlaybackStatus() == mpris.Playing)
	case mpris.ActivatePlaylistIntent:
		return h.activateLocked(in.PlaylistID)
	}
	return fmt.Errorf("unhandled intent %T", in)
}

// advance moves the simulated playback position forward by elapsed
func (h *host) advance(elapsed time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.current < 0 || h.p.PlaybackStatus() != mpris.Playing {
		return nil
	}
	pos := h.p.Position() + time.Duration(float64(elapsed)*h.p.Rate())
	if length, ok := h.entries[h.current].meta.Length(); ok && pos >= length {
		if h.p.LoopStatus() == mpris.LoopTrack {
			return h.p.Seeked(0)
		}
		return h.nextLocked()
	}
	return h.p.UpdatePosition(pos)
}

// tracksMetadata answers GetTracksMetadata. Unknown ids are skipped.
func (h *host) tracksMetadata(ids []dbus.ObjectPath) ([]mpris.Metadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]mpris.Metadata, 0, len(ids))
	for _, id := range ids {
		if i := h.indexLocked(id); i >= 0 {
			out = append(out, h.entries[i].meta)
		}
	}
	return out, nil
}

func (h *host) currentMetadataLocked() mpris.Metadata {
	if h.current < 0 {
		return idleMetadata()
	}
	return h.entries[h.current].meta
}

func (h *host) idsLocked() []dbus.ObjectPath {
	ids := make([]dbus.ObjectPath, len(h.entries))
	for i, e := range h.entries {
		ids[i] = e.id
	}
	return ids
}

func (h *host) indexLocked(id dbus.ObjectPath) int {
	return slices.IndexFunc(h.entries, func(e queueEntry) bool { return e.id == id })
}

// capsLocked derives the control flags from the queue
func (h *host) capsLocked(loop mpris.LoopStatus, shuffle bool) mpris.Capabilities {
	n := len(h.entries)
	caps := mpris.Capabilities{
		CanPlay:       n > 0,
		CanPause:      n > 0,
		CanGoPrevious: n > 0,
	}
	caps.CanGoNext = n > 0 && (h.current < n-1 || loop == mpris.LoopPlaylist || (shuffle && n > 1))
	if h.current >= 0 {
		_, caps.CanSeek = h.entries[h.current].meta.Length()
	}
	return caps
}

func (h *host) refreshCapsLocked() error {
	return h.p.SetCapabilities(h.capsLocked(h.p.LoopStatus(), h.p.Shuffle()))
}

// selectLocked makes entry i current, rewinding to its start
func (h *host) selectLocked(i int, play bool) error {
	h.current = i
	m := h.entries[i].meta
	var err error
	if play {
		err = h.p.PlayTrack(m)
	} else {
		err = h.p.UpdateTrack(m)
	}
	if err != nil {
		return err
	}
	return h.refreshCapsLocked()
}

func (h *host) stopLocked() error {
	if err := h.p.SetPlaybackStatus(mpris.Stopped); err != nil {
		return err
	}
	return h.p.UpdatePosition(0)
}

// nextIndexLocked picks the track after the current one. Shuffle picks any
// other track at random.
func (h *host) nextIndexLocked() (int, bool) {
	n := len(h.entries)
	if n == 0 {
		return 0, false
	}
	if h.p.Shuffle() && n > 1 {
		i := h.rng.IntN(n - 1)
		if i >= h.current {
			i++
		}
		return i, true
	}
	if h.current+1 < n {
		return h.current + 1, true
	}
	if h.p.LoopStatus() == mpris.LoopPlaylist {
		return 0, true
	}
	return 0, false
}

func (h *host) nextLocked() error {
	i, ok := h.nextIndexLocked()
	if !ok {
		return h.stopLocked()
	}
	return h.selectLocked(i, h.p.PlaybackStatus() == mpris.Playing)
}

func (h *host) previousLocked() error {
	if h.current < 0 {
		return nil
	}
	if h.p.Position() > restartThreshold {
		return h.p.Seeked(0)
	}
	i := h.current - 1
	if i < 0 {
		if h.p.LoopStatus() == mpris.LoopPlaylist {
			i = len(h.entries) - 1
		} else {
			i = 0
		}
	}
	return h.selectLocked(i, h.p.PlaybackStatus() == mpris.Playing)
}

// seekLocked jumps to pos. Seeking past the end of the track moves on to
// the next one.
func (h *host) seekLocked(pos time.Duration) error {
	if h.current < 0 {
		return nil
	}
	pos = max(pos, 0)
	if length, ok := h.entries[h.current].meta.Length(); ok && pos > length {
		return h.nextLocked()
	}
	return h.p.Seeked(pos)
}

// openLocked appends uri to the queue and plays it
func (h *host) openLocked(uri string) error {
	e, err := newEntry(h.lib.trackForURI(uri))
	if err != nil {
		return err
	}
	after := mpris.NoTrack
	if n := len(h.entries); n > 0 {
		after = h.entries[n-1].id
	}
	h.entries = append(h.entries, e)
	if h.tl != nil {
		if err := h.tl.TrackAdded(e.meta, after); err != nil {
			return err
		}
	}
	return h.selectLocked(len(h.entries)-1, true)
}

func (h *host) addLocked(uri string, after dbus.ObjectPath, setAsCurrent bool) error {
	e, err := newEntry(h.lib.trackForURI(uri))
	if err != nil {
		return err
	}
	at := 0
	if after != mpris.NoTrack {
		i := h.indexLocked(after)
		if i < 0 {
			return fmt.Errorf("unknown track %s", after)
		}
		at = i + 1
	}
	h.entries = slices.Insert(h.entries, at, e)
	if h.current >= at {
		h.current++
	}
	if h.tl != nil {
		if err := h.tl.TrackAdded(e.meta, after); err != nil {
			return err
		}
	}
	if setAsCurrent || h.current < 0 {
		return h.selectLocked(at, h.p.PlaybackStatus() == mpris.Playing)
	}
	return h.refreshCapsLocked()
}

func (h *host) removeLocked(id dbus.ObjectPath) error {
	i := h.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("unknown track %s", id)
	}
	h.entries = slices.Delete(h.entries, i, i+1)
	if h.tl != nil {
		if err := h.tl.TrackRemoved(id); err != nil {
			return err
		}
	}

	switch {
	case i < h.current:
		h.current--
	case i == h.current && len(h.entries) == 0:
		h.current = -1
		if err := h.p.UpdateTrack(idleMetadata()); err != nil {
			return err
		}
		if err := h.p.SetPlaybackStatus(mpris.Stopped); err != nil {
			return err
		}
	case i == h.current:
		return h.selectLocked(min(i, len(h.entries)-1), h.p.PlaybackStatus() == mpris.Playing)
	}
	return h.refreshCapsLocked()
}

// activateLocked replaces the queue with the playlist's tracks and plays
// the first one
func (h *host) activateLocked(id dbus.ObjectPath) error {
	pl, tracks, ok := h.lib.playlist(id)
	if !ok {
		return fmt.Errorf("unknown playlist %s", id)
	}
	entries, err := h.newEntries(tracks)
	if err != nil {
		return err
	}
	h.entries = entries
	h.current = -1
	current := mpris.NoTrack
	if len(entries) > 0 {
		h.current = 0
		current = entries[0].id
	}

	if h.tl != nil {
		if err := h.tl.ReplaceTracks(h.idsLocked(), current); err != nil {
			return err
		}
	}
	if h.pls != nil {
		if err := h.pls.SetActivePlaylist(mpris.Active(pl)); err != nil {
			return err
		}
	}
	if h.current < 0 {
		if err := h.p.UpdateTrack(idleMetadata()); err != nil {
			return err
		}
		if err := h.stopLocked(); err != nil {
			return err
		}
		return h.refreshCapsLocked()
	}
	return h.selectLocked(0, true)
}
