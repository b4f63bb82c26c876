package mpris

import (
	"slices"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

// Well-known names of the protocol
const (
	BusNamePrefix = "org.mpris.MediaPlayer2."
	ObjectPath    = dbus.ObjectPath("/org/mpris/MediaPlayer2")

	InterfaceMediaPlayer2 = "org.mpris.MediaPlayer2"
	InterfacePlayer       = "org.mpris.MediaPlayer2.Player"
	InterfaceTrackList    = "org.mpris.MediaPlayer2.TrackList"
	InterfacePlaylists    = "org.mpris.MediaPlayer2.Playlists"

	// NoTrack marks "no track" wherever a track id is expected
	NoTrack = dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
)

// BaseConfig declares the org.mpris.MediaPlayer2 interface
type BaseConfig struct {
	CanQuit             bool
	Fullscreen          bool
	CanSetFullscreen    bool
	CanRaise            bool
	Identity            string
	DesktopEntry        string
	SupportedURISchemes []string
	SupportedMIMETypes  []string

	OnRaise      func() error
	OnQuit       func() error
	OnFullscreen func(fullscreen bool) error
}

// PlayerConfig declares the org.mpris.MediaPlayer2.Player interface.
// Metadata is required.
type PlayerConfig struct {
	PlaybackStatus PlaybackStatus
	LoopStatus     LoopStatus
	Rate           float64
	Shuffle        bool
	Metadata       *Metadata
	Volume         float64
	Position       time.Duration
	MinimumRate    float64
	MaximumRate    float64
	CanGoNext      bool
	CanGoPrevious  bool
	CanPlay        bool
	CanPause       bool
	CanSeek        bool
	CanControl     bool

	OnNext        func() error
	OnPrevious    func() error
	OnPause       func() error
	OnPlayPause   func() error
	OnStop        func() error
	OnPlay        func() error
	OnSeek        func(offset time.Duration) error
	OnSetPosition func(trackID dbus.ObjectPath, position time.Duration) error
	OnOpenURI     func(uri string) error
	OnLoopStatus  func(status LoopStatus) error
	OnRate        func(rate float64) error
	OnShuffle     func(shuffle bool) error
	OnVolume      func(volume float64) error
}

// TrackListConfig declares the org.mpris.MediaPlayer2.TrackList interface
type TrackListConfig struct {
	Tracks        []dbus.ObjectPath
	CanEditTracks bool

	// OnGetTracksMetadata answers GetTracksMetadata. Without it the call
	// returns no metadata.
	OnGetTracksMetadata func(ids []dbus.ObjectPath) ([]Metadata, error)
	OnAddTrack          func(uri string, after dbus.ObjectPath, setAsCurrent bool) error
	OnRemoveTrack       func(id dbus.ObjectPath) error
	OnGoTo              func(id dbus.ObjectPath) error
}

// Playlist is the (oss) structure of the Playlists interface
type Playlist struct {
	ID   dbus.ObjectPath
	Name string
	Icon string
}

// MaybePlaylist is the (b(oss)) structure used for ActivePlaylist.
// Valid false means no playlist is active.
type MaybePlaylist struct {
	Valid    bool
	Playlist Playlist
}

// Active wraps p as an active playlist
func Active(p Playlist) MaybePlaylist {
	return MaybePlaylist{Valid: true, Playlist: p}
}

// PlaylistQuery carries the arguments of GetPlaylists
type PlaylistQuery struct {
	Index    uint32
	MaxCount uint32
	Order    PlaylistOrdering
	Reverse  bool
}

// PlaylistsConfig declares the org.mpris.MediaPlayer2.Playlists interface.
// ActivePlaylist is required; use MaybePlaylist{} for "none active".
type PlaylistsConfig struct {
	PlaylistCount  uint32
	Orderings      []PlaylistOrdering
	ActivePlaylist *MaybePlaylist

	OnActivatePlaylist func(id dbus.ObjectPath) error

	// OnGetPlaylists answers GetPlaylists. Without it the call returns no playlists.
	OnGetPlaylists func(q PlaylistQuery) ([]Playlist, error)
}

func (b *BaseConfig) applyDefaults(name string) {
	b.DesktopEntry = strings.TrimSuffix(b.DesktopEntry, ".desktop")
	if b.Identity == "" {
		b.Identity = b.DesktopEntry
	}
	if b.Identity == "" {
		b.Identity = name
	}
	b.SupportedURISchemes = slices.Clone(b.SupportedURISchemes)
	b.SupportedMIMETypes = slices.Clone(b.SupportedMIMETypes)
}

func (b *BaseConfig) validate() error {
	for _, s := range b.SupportedURISchemes {
		if s == "" || strings.Contains(s, ":") {
			return invalid("SupportedUriSchemes", "bad scheme %q", s)
		}
	}
	for _, m := range b.SupportedMIMETypes {
		if !strings.Contains(m, "/") {
			return invalid("SupportedMimeTypes", "bad mime type %q", m)
		}
	}
	return nil
}

func (p *PlayerConfig) applyDefaults() {
	if p.PlaybackStatus == "" {
		p.PlaybackStatus = Stopped
	}
	if p.LoopStatus == "" {
		p.LoopStatus = LoopNone
	}
	if p.Rate == 0 {
		p.Rate = 1
	}
	if p.MinimumRate == 0 {
		p.MinimumRate = 1
	}
	if p.MaximumRate == 0 {
		p.MaximumRate = 1
	}
	if p.Volume < 0 {
		p.Volume = 0
	}
}

func (p *PlayerConfig) validate() error {
	if !p.PlaybackStatus.Valid() {
		return invalid("PlaybackStatus", "unknown status %q", p.PlaybackStatus)
	}
	if !p.LoopStatus.Valid() {
		return invalid("LoopStatus", "unknown status %q", p.LoopStatus)
	}
	if err := validateRates(p.MinimumRate, p.Rate, p.MaximumRate); err != nil {
		return err
	}
	if p.Position < 0 {
		return invalid("Position", "negative position %s", p.Position)
	}
	if length, ok := p.Metadata.Length(); ok && p.Position > length {
		return invalid("Position", "%s is past the track length %s", p.Position, length)
	}
	return nil
}

func validateRates(minimum, rate, maximum float64) error {
	if minimum <= 0 || minimum > 1 {
		return invalid("MinimumRate", "must be in (0, 1], got %g", minimum)
	}
	if maximum < 1 {
		return invalid("MaximumRate", "must be at least 1, got %g", maximum)
	}
	if rate < minimum || rate > maximum {
		return invalid("Rate", "%g is outside [%g, %g]", rate, minimum, maximum)
	}
	return nil
}

func (t *TrackListConfig) validate() error {
	return validateTrackList(t.Tracks)
}

func validateTrackList(ids []dbus.ObjectPath) error {
	seen := make(map[dbus.ObjectPath]struct{}, len(ids))
	for _, id := range ids {
		if err := validateTrackID("Tracks", id); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return invalid("Tracks", "duplicate track id %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (p *PlaylistsConfig) applyDefaults() {
	if len(p.Orderings) == 0 {
		p.Orderings = []PlaylistOrdering{OrderUserDefined}
	}
	p.Orderings = slices.Clone(p.Orderings)
}

func (p *PlaylistsConfig) validate() error {
	if err := validateOrderings(p.Orderings); err != nil {
		return err
	}
	return validateMaybePlaylist(*p.ActivePlaylist)
}

func validateOrderings(orderings []PlaylistOrdering) error {
	if len(orderings) == 0 {
		return invalid("Orderings", "at least one ordering must be offered")
	}
	for _, o := range orderings {
		if !o.Valid() {
			return invalid("Orderings", "unknown ordering %q", o)
		}
	}
	return nil
}

func validateMaybePlaylist(mp MaybePlaylist) error {
	if !mp.Valid {
		return nil
	}
	return validatePlaylist(mp.Playlist)
}

func validatePlaylist(p Playlist) error {
	if !p.ID.IsValid() {
		return invalid("Playlist", "%q is not a valid object path", p.ID)
	}
	if p.Icon != "" {
		if err := validateURI("Playlist.Icon", p.Icon); err != nil {
			return err
		}
	}
	return nil
}

// validateName checks that name can follow BusNamePrefix: dot separated
// elements of [A-Za-z0-9_-], none starting with a digit.
func validateName(name string) error {
	if name == "" {
		return invalid("name", "must not be empty")
	}
	if len(BusNamePrefix)+len(name) > 255 {
		return invalid("name", "bus name longer than 255 bytes")
	}
	for _, elem := range strings.Split(name, ".") {
		if elem == "" {
			return invalid("name", "%q has an empty element", name)
		}
		if elem[0] >= '0' && elem[0] <= '9' {
			return invalid("name", "element %q starts with a digit", elem)
		}
		for _, r := range elem {
			if !isNameRune(r) {
				return invalid("name", "%q contains %q", name, r)
			}
		}
	}
	return nil
}

func isNameRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
}
