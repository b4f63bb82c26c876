package mpris

import (
	"log"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// Capabilities are the Player flags that say which controls currently work
type Capabilities struct {
	CanGoNext     bool
	CanGoPrevious bool
	CanPlay       bool
	CanPause      bool
	CanSeek       bool
}

type baseState struct {
	canQuit          bool
	fullscreen       bool
	canSetFullscreen bool
	canRaise         bool
	identity         string
	desktopEntry     string
	uriSchemes       []string
	mimeTypes        []string
}

type playerState struct {
	status     PlaybackStatus
	loop       LoopStatus
	rate       float64
	minRate    float64
	maxRate    float64
	shuffle    bool
	metadata   Metadata
	volume     float64
	position   time.Duration
	caps       Capabilities
	canControl bool
}

type trackListState struct {
	tracks        []dbus.ObjectPath
	canEditTracks bool
}

type playlistsState struct {
	count     uint32
	orderings []PlaylistOrdering
	active    MaybePlaylist
}

// core is the state and inbound side shared by every façade type of one
// published player.
//
// mu guards all state. emitMu is held across commit and emission so that
// notifications leave in commit order; mu itself is released before
// emitting, so observers may read state while handling a notification.
type core struct {
	t        Transport
	busName  string
	variant  Variant
	dispatch Dispatcher
	log      *log.Logger

	getTracksMetadata func(ids []dbus.ObjectPath) ([]Metadata, error)
	getPlaylists      func(q PlaylistQuery) ([]Playlist, error)

	emitMu sync.Mutex

	mu        sync.Mutex
	closed    bool
	handle    Handle
	base      baseState
	player    playerState
	trackList trackListState
	playlists playlistsState
}

func (c *core) lock() func() {
	c.mu.Lock()
	return c.mu.Unlock
}

// commit runs fn under the state lock. The returned func, if any, emits the
// resulting notifications once the lock has been released.
func (c *core) commit(fn func() (func(), error)) error {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	emit, err := fn()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if emit != nil {
		emit()
	}
	return nil
}

// changedLocked snapshots the named properties of iface and returns the
// PropertiesChanged emission for them
func (c *core) changedLocked(iface string, names ...string) func() {
	all := c.propertiesLocked(iface)
	changed := make(map[string]dbus.Variant, len(names))
	for _, name := range names {
		changed[name] = all[name]
	}
	return func() {
		c.emitChanged(iface, changed, nil)
	}
}

func (c *core) emitChanged(iface string, changed map[string]dbus.Variant, invalidated []string) {
	if err := c.t.EmitPropertiesChanged(ObjectPath, iface, changed, invalidated); err != nil {
		c.log.Printf("mpris: %s PropertiesChanged on %s: %v", c.busName, iface, err)
	}
}

func (c *core) emitSignal(iface, name string, args ...any) {
	if err := c.t.EmitSignal(ObjectPath, iface, name, args...); err != nil {
		c.log.Printf("mpris: %s %s.%s: %v", c.busName, iface, name, err)
	}
}

// relay hands in to the dispatcher if the current state allows it.
// A refused intent is an error for local callers and silently dropped for
// remote ones.
func (c *core) relay(in Intent, remote bool) error {
	c.mu.Lock()
	closed := c.closed
	ok := c.allowedLocked(in)
	c.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !ok {
		if remote {
			c.log.Printf("mpris: %s ignored %T", c.busName, in)
			return nil
		}
		return ErrIntentDisabled
	}
	return dispatchSafely(c.dispatch, in)
}

func (c *core) allowedLocked(in Intent) bool {
	p := &c.player
	ctl := p.canControl
	switch in := in.(type) {
	case RaiseIntent:
		return c.base.canRaise
	case QuitIntent:
		return c.base.canQuit
	case SetFullscreenIntent:
		return c.base.canSetFullscreen
	case NextIntent:
		return ctl && p.caps.CanGoNext
	case PreviousIntent:
		return ctl && p.caps.CanGoPrevious
	case PlayIntent:
		return ctl && p.caps.CanPlay
	case PauseIntent, PlayPauseIntent:
		return ctl && p.caps.CanPause
	case StopIntent:
		return ctl
	case SeekIntent:
		return ctl && p.caps.CanSeek
	case SetPositionIntent:
		if !ctl || !p.caps.CanSeek || in.TrackID != p.metadata.trackID || in.Position < 0 {
			return false
		}
		length, ok := p.metadata.Length()
		return !ok || in.Position <= length
	case OpenURIIntent:
		return c.schemeSupportedLocked(in.URI)
	case SetLoopStatusIntent:
		return ctl && in.LoopStatus.Valid()
	case SetRateIntent:
		return ctl && in.Rate >= p.minRate && in.Rate <= p.maxRate
	case SetShuffleIntent, SetVolumeIntent:
		return ctl
	case AddTrackIntent:
		return c.variant.HasTrackList() && c.trackList.canEditTracks &&
			(in.After == NoTrack || slices.Contains(c.trackList.tracks, in.After))
	case RemoveTrackIntent:
		return c.variant.HasTrackList() && c.trackList.canEditTracks &&
			slices.Contains(c.trackList.tracks, in.TrackID)
	case GoToIntent:
		return c.variant.HasTrackList() && slices.Contains(c.trackList.tracks, in.TrackID)
	case ActivatePlaylistIntent:
		return c.variant.HasPlaylists()
	}
	return false
}

func (c *core) schemeSupportedLocked(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return false
	}
	return slices.ContainsFunc(c.base.uriSchemes, func(s string) bool {
		return strings.EqualFold(s, u.Scheme)
	})
}

// close unpublishes the object. Later calls are no-ops.
func (c *core) close() error {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	h := c.handle
	c.mu.Unlock()

	if h == nil {
		return nil
	}
	if err := h.Unpublish(); err != nil {
		return &TransportError{Op: "unpublish", Err: err}
	}
	return nil
}
