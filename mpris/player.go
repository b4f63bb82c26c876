package mpris

import (
	"slices"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

// Player is the façade for the org.mpris.MediaPlayer2 and
// org.mpris.MediaPlayer2.Player interfaces. Every variant carries one.
//
// Set* methods commit state and emit PropertiesChanged before returning,
// even when the value did not change. Control methods (Play, Next, ...)
// only relay the intent to the handler; the handler reports the outcome
// through the Set* methods.
type Player struct {
	c *core
}

func (p *Player) isMediaPlayer() {}

// Variant reports which interfaces the player was composed with
func (p *Player) Variant() Variant { return p.c.variant }

// BusName is the well-known name the player was published under
func (p *Player) BusName() string { return p.c.busName }

// Close withdraws the player from the bus. The façade is unusable afterwards.
func (p *Player) Close() error { return p.c.close() }

// Base interface state

func (p *Player) Identity() string {
	defer p.c.lock()()
	return p.c.base.identity
}

func (p *Player) DesktopEntry() string {
	defer p.c.lock()()
	return p.c.base.desktopEntry
}

func (p *Player) Fullscreen() bool {
	defer p.c.lock()()
	return p.c.base.fullscreen
}

func (p *Player) CanQuit() bool {
	defer p.c.lock()()
	return p.c.base.canQuit
}

func (p *Player) CanRaise() bool {
	defer p.c.lock()()
	return p.c.base.canRaise
}

func (p *Player) CanSetFullscreen() bool {
	defer p.c.lock()()
	return p.c.base.canSetFullscreen
}

func (p *Player) SupportedURISchemes() []string {
	defer p.c.lock()()
	return slices.Clone(p.c.base.uriSchemes)
}

func (p *Player) SupportedMIMETypes() []string {
	defer p.c.lock()()
	return slices.Clone(p.c.base.mimeTypes)
}

func (p *Player) SetIdentity(identity string) error {
	return p.c.commit(func() (func(), error) {
		p.c.base.identity = identity
		return p.c.changedLocked(InterfaceMediaPlayer2, "Identity"), nil
	})
}

func (p *Player) SetDesktopEntry(entry string) error {
	entry = strings.TrimSuffix(entry, ".desktop")
	return p.c.commit(func() (func(), error) {
		p.c.base.desktopEntry = entry
		return p.c.changedLocked(InterfaceMediaPlayer2, "DesktopEntry"), nil
	})
}

func (p *Player) SetFullscreen(fullscreen bool) error {
	return p.c.commit(func() (func(), error) {
		p.c.base.fullscreen = fullscreen
		return p.c.changedLocked(InterfaceMediaPlayer2, "Fullscreen"), nil
	})
}

func (p *Player) SetCanQuit(v bool) error {
	return p.c.commit(func() (func(), error) {
		p.c.base.canQuit = v
		return p.c.changedLocked(InterfaceMediaPlayer2, "CanQuit"), nil
	})
}

func (p *Player) SetCanRaise(v bool) error {
	return p.c.commit(func() (func(), error) {
		p.c.base.canRaise = v
		return p.c.changedLocked(InterfaceMediaPlayer2, "CanRaise"), nil
	})
}

func (p *Player) SetCanSetFullscreen(v bool) error {
	return p.c.commit(func() (func(), error) {
		p.c.base.canSetFullscreen = v
		return p.c.changedLocked(InterfaceMediaPlayer2, "CanSetFullscreen"), nil
	})
}

func (p *Player) SetSupportedURISchemes(schemes ...string) error {
	b := BaseConfig{SupportedURISchemes: schemes}
	if err := b.validate(); err != nil {
		return err
	}
	schemes = slices.Clone(schemes)
	return p.c.commit(func() (func(), error) {
		p.c.base.uriSchemes = schemes
		return p.c.changedLocked(InterfaceMediaPlayer2, "SupportedUriSchemes"), nil
	})
}

func (p *Player) SetSupportedMIMETypes(types ...string) error {
	b := BaseConfig{SupportedMIMETypes: types}
	if err := b.validate(); err != nil {
		return err
	}
	types = slices.Clone(types)
	return p.c.commit(func() (func(), error) {
		p.c.base.mimeTypes = types
		return p.c.changedLocked(InterfaceMediaPlayer2, "SupportedMimeTypes"), nil
	})
}

// Player interface state

func (p *Player) PlaybackStatus() PlaybackStatus {
	defer p.c.lock()()
	return p.c.player.status
}

func (p *Player) LoopStatus() LoopStatus {
	defer p.c.lock()()
	return p.c.player.loop
}

func (p *Player) Rate() float64 {
	defer p.c.lock()()
	return p.c.player.rate
}

func (p *Player) MinimumRate() float64 {
	defer p.c.lock()()
	return p.c.player.minRate
}

func (p *Player) MaximumRate() float64 {
	defer p.c.lock()()
	return p.c.player.maxRate
}

func (p *Player) Shuffle() bool {
	defer p.c.lock()()
	return p.c.player.shuffle
}

func (p *Player) Metadata() Metadata {
	defer p.c.lock()()
	return p.c.player.metadata
}

func (p *Player) Volume() float64 {
	defer p.c.lock()()
	return p.c.player.volume
}

func (p *Player) Position() time.Duration {
	defer p.c.lock()()
	return p.c.player.position
}

// Capabilities returns the flags as configured, regardless of CanControl
func (p *Player) Capabilities() Capabilities {
	defer p.c.lock()()
	return p.c.player.caps
}

func (p *Player) CanControl() bool {
	defer p.c.lock()()
	return p.c.player.canControl
}

func (p *Player) SetPlaybackStatus(status PlaybackStatus) error {
	if !status.Valid() {
		return invalid("PlaybackStatus", "unknown status %q", status)
	}
	return p.c.commit(func() (func(), error) {
		p.c.player.status = status
		return p.c.changedLocked(InterfacePlayer, "PlaybackStatus"), nil
	})
}

// SetMetadata replaces the current track's metadata
func (p *Player) SetMetadata(m Metadata) error {
	if m.IsZero() {
		return ErrNullMetadata
	}
	return p.c.commit(func() (func(), error) {
		p.c.player.metadata = m
		return p.c.changedLocked(InterfacePlayer, "Metadata"), nil
	})
}

func (p *Player) SetLoopStatus(status LoopStatus) error {
	if !status.Valid() {
		return invalid("LoopStatus", "unknown status %q", status)
	}
	return p.c.commit(func() (func(), error) {
		p.c.player.loop = status
		return p.c.changedLocked(InterfacePlayer, "LoopStatus"), nil
	})
}

func (p *Player) SetRate(rate float64) error {
	return p.c.commit(func() (func(), error) {
		st := &p.c.player
		if err := validateRates(st.minRate, rate, st.maxRate); err != nil {
			return nil, err
		}
		st.rate = rate
		return p.c.changedLocked(InterfacePlayer, "Rate"), nil
	})
}

func (p *Player) SetMinimumRate(rate float64) error {
	return p.c.commit(func() (func(), error) {
		st := &p.c.player
		if err := validateRates(rate, st.rate, st.maxRate); err != nil {
			return nil, err
		}
		st.minRate = rate
		return p.c.changedLocked(InterfacePlayer, "MinimumRate"), nil
	})
}

func (p *Player) SetMaximumRate(rate float64) error {
	return p.c.commit(func() (func(), error) {
		st := &p.c.player
		if err := validateRates(st.minRate, st.rate, rate); err != nil {
			return nil, err
		}
		st.maxRate = rate
		return p.c.changedLocked(InterfacePlayer, "MaximumRate"), nil
	})
}

func (p *Player) SetShuffle(shuffle bool) error {
	return p.c.commit(func() (func(), error) {
		p.c.player.shuffle = shuffle
		return p.c.changedLocked(InterfacePlayer, "Shuffle"), nil
	})
}

// SetVolume sets the volume; negative values are stored as 0
func (p *Player) SetVolume(volume float64) error {
	volume = max(volume, 0)
	return p.c.commit(func() (func(), error) {
		p.c.player.volume = volume
		return p.c.changedLocked(InterfacePlayer, "Volume"), nil
	})
}

// SetCapabilities replaces all five control flags in one notification
func (p *Player) SetCapabilities(caps Capabilities) error {
	return p.c.commit(func() (func(), error) {
		p.c.player.caps = caps
		return p.c.changedLocked(InterfacePlayer,
			"CanGoNext", "CanGoPrevious", "CanPlay", "CanPause", "CanSeek"), nil
	})
}

// UpdatePosition records the playback position without notifying anyone;
// controllers poll Position. Use Seeked for jumps.
func (p *Player) UpdatePosition(pos time.Duration) error {
	if pos < 0 {
		return invalid("Position", "negative position %s", pos)
	}
	defer p.c.lock()()
	if p.c.closed {
		return ErrClosed
	}
	p.c.player.position = pos
	return nil
}

// Seeked records a position jump and emits the Seeked signal
func (p *Player) Seeked(pos time.Duration) error {
	if pos < 0 {
		return invalid("Position", "negative position %s", pos)
	}
	return p.c.commit(func() (func(), error) {
		p.c.player.position = pos
		return func() {
			p.c.emitSignal(InterfacePlayer, "Seeked", pos.Microseconds())
		}, nil
	})
}

// UpdateTrack switches to a new track: metadata is replaced and the
// position rewinds to zero.
func (p *Player) UpdateTrack(m Metadata) error {
	if m.IsZero() {
		return ErrNullMetadata
	}
	return p.c.commit(func() (func(), error) {
		p.c.player.metadata = m
		p.c.player.position = 0
		return p.c.changedLocked(InterfacePlayer, "Metadata"), nil
	})
}

// PlayTrack is UpdateTrack followed by PlaybackStatus Playing, reported in
// a single notification.
func (p *Player) PlayTrack(m Metadata) error {
	if m.IsZero() {
		return ErrNullMetadata
	}
	return p.c.commit(func() (func(), error) {
		p.c.player.metadata = m
		p.c.player.position = 0
		p.c.player.status = Playing
		return p.c.changedLocked(InterfacePlayer, "Metadata", "PlaybackStatus"), nil
	})
}

// Controls. Each relays its intent; ErrIntentDisabled means the current
// capability flags do not allow it.

func (p *Player) Raise() error { return p.c.relay(RaiseIntent{}, false) }

func (p *Player) Quit() error { return p.c.relay(QuitIntent{}, false) }

func (p *Player) Play() error { return p.c.relay(PlayIntent{}, false) }

func (p *Player) Pause() error { return p.c.relay(PauseIntent{}, false) }

func (p *Player) PlayPause() error { return p.c.relay(PlayPauseIntent{}, false) }

func (p *Player) Stop() error { return p.c.relay(StopIntent{}, false) }

func (p *Player) Next() error { return p.c.relay(NextIntent{}, false) }

func (p *Player) Previous() error { return p.c.relay(PreviousIntent{}, false) }

// Seek asks the handler to move the position by offset
func (p *Player) Seek(offset time.Duration) error {
	return p.c.relay(SeekIntent{Offset: offset}, false)
}

// SetPosition asks the handler to jump to pos in trackID. It is refused
// unless trackID is the current track and pos lies within it.
func (p *Player) SetPosition(trackID dbus.ObjectPath, pos time.Duration) error {
	return p.c.relay(SetPositionIntent{TrackID: trackID, Position: pos}, false)
}

// OpenURI asks the handler to open uri; its scheme must be supported
func (p *Player) OpenURI(uri string) error {
	return p.c.relay(OpenURIIntent{URI: uri}, false)
}

// Requests for writable properties. They go through the same gates as a
// remote property write and leave the stored value to the handler.

func (p *Player) RequestLoopStatus(status LoopStatus) error {
	return p.c.relay(SetLoopStatusIntent{LoopStatus: status}, false)
}

func (p *Player) RequestRate(rate float64) error {
	return p.c.relay(SetRateIntent{Rate: rate}, false)
}

func (p *Player) RequestShuffle(shuffle bool) error {
	return p.c.relay(SetShuffleIntent{Shuffle: shuffle}, false)
}

// RequestVolume clamps negative volumes to 0 like a remote write does
func (p *Player) RequestVolume(volume float64) error {
	return p.c.relay(SetVolumeIntent{Volume: max(volume, 0)}, false)
}

func (p *Player) RequestFullscreen(fullscreen bool) error {
	return p.c.relay(SetFullscreenIntent{Fullscreen: fullscreen}, false)
}
