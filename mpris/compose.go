package mpris

import (
	"io"
	"log"
	"slices"
)

// Variant is the set of optional interfaces a player was composed with.
// It is fixed for the lifetime of the published object.
type Variant int

const (
	VariantBase Variant = iota
	VariantTrackList
	VariantPlaylists
	VariantFull
)

func variantOf(trackList, playlists bool) Variant {
	switch {
	case trackList && playlists:
		return VariantFull
	case trackList:
		return VariantTrackList
	case playlists:
		return VariantPlaylists
	}
	return VariantBase
}

func (v Variant) HasTrackList() bool {
	return v == VariantTrackList || v == VariantFull
}

func (v Variant) HasPlaylists() bool {
	return v == VariantPlaylists || v == VariantFull
}

// Interfaces lists the bus interfaces exposed by the variant
func (v Variant) Interfaces() []string {
	ifaces := []string{InterfaceMediaPlayer2, InterfacePlayer}
	if v.HasTrackList() {
		ifaces = append(ifaces, InterfaceTrackList)
	}
	if v.HasPlaylists() {
		ifaces = append(ifaces, InterfacePlaylists)
	}
	return ifaces
}

func (v Variant) String() string {
	switch v {
	case VariantBase:
		return "Base"
	case VariantTrackList:
		return "Base+TrackList"
	case VariantPlaylists:
		return "Base+Playlists"
	case VariantFull:
		return "Base+TrackList+Playlists"
	}
	return "Variant(?)"
}

// MediaPlayer is implemented by the four façade types *Player,
// *TrackListPlayer, *PlaylistsPlayer and *FullPlayer.
type MediaPlayer interface {
	Variant() Variant
	Close() error
	isMediaPlayer()
}

// TrackListPlayer is a player exposing the TrackList interface
type TrackListPlayer struct {
	*Player
	*TrackList
}

// PlaylistsPlayer is a player exposing the Playlists interface
type PlaylistsPlayer struct {
	*Player
	*Playlists
}

// FullPlayer is a player exposing both TrackList and Playlists
type FullPlayer struct {
	*Player
	*TrackList
	*Playlists
}

// Config bundles every configuration set for Build.
// A nil TrackList or Playlists leaves that interface out.
type Config struct {
	Base      BaseConfig
	Player    PlayerConfig
	TrackList *TrackListConfig
	Playlists *PlaylistsConfig
}

type Option func(*options)

type options struct {
	dispatcher Dispatcher
	logger     *log.Logger
}

// WithDispatcher sends every intent to d instead of the On* callbacks of the
// configuration sets. Value providers (OnGetTracksMetadata, OnGetPlaylists)
// are still called directly.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// WithLogger sets where emission failures and ignored remote calls are
// logged. By default nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Compose publishes a player with the base and player interfaces only
func Compose(t Transport, name string, base BaseConfig, player PlayerConfig, opts ...Option) (*Player, error) {
	c, err := compose(t, name, base, player, nil, nil, opts)
	if err != nil {
		return nil, err
	}
	return &Player{c: c}, nil
}

// ComposeWithTrackList publishes a player that also exposes the TrackList interface
func ComposeWithTrackList(t Transport, name string, base BaseConfig, player PlayerConfig, trackList TrackListConfig, opts ...Option) (*TrackListPlayer, error) {
	c, err := compose(t, name, base, player, &trackList, nil, opts)
	if err != nil {
		return nil, err
	}
	return &TrackListPlayer{Player: &Player{c: c}, TrackList: &TrackList{c: c}}, nil
}

// ComposeWithPlaylists publishes a player that also exposes the Playlists interface
func ComposeWithPlaylists(t Transport, name string, base BaseConfig, player PlayerConfig, playlists PlaylistsConfig, opts ...Option) (*PlaylistsPlayer, error) {
	c, err := compose(t, name, base, player, nil, &playlists, opts)
	if err != nil {
		return nil, err
	}
	return &PlaylistsPlayer{Player: &Player{c: c}, Playlists: &Playlists{c: c}}, nil
}

// ComposeAll publishes a player exposing every interface
func ComposeAll(t Transport, name string, base BaseConfig, player PlayerConfig, trackList TrackListConfig, playlists PlaylistsConfig, opts ...Option) (*FullPlayer, error) {
	c, err := compose(t, name, base, player, &trackList, &playlists, opts)
	if err != nil {
		return nil, err
	}
	return &FullPlayer{Player: &Player{c: c}, TrackList: &TrackList{c: c}, Playlists: &Playlists{c: c}}, nil
}

// Build picks the variant from which optional sets in cfg are present.
// On error the returned MediaPlayer is nil.
func Build(t Transport, name string, cfg Config, opts ...Option) (MediaPlayer, error) {
	var (
		mp  MediaPlayer
		err error
	)
	switch {
	case cfg.TrackList != nil && cfg.Playlists != nil:
		mp, err = ComposeAll(t, name, cfg.Base, cfg.Player, *cfg.TrackList, *cfg.Playlists, opts...)
	case cfg.TrackList != nil:
		mp, err = ComposeWithTrackList(t, name, cfg.Base, cfg.Player, *cfg.TrackList, opts...)
	case cfg.Playlists != nil:
		mp, err = ComposeWithPlaylists(t, name, cfg.Base, cfg.Player, *cfg.Playlists, opts...)
	default:
		mp, err = Compose(t, name, cfg.Base, cfg.Player, opts...)
	}
	if err != nil {
		return nil, err
	}
	return mp, nil
}

// compose validates the configuration sets, builds the shared core and
// publishes it. Nothing is published unless every check passed.
func compose(t Transport, name string, base BaseConfig, player PlayerConfig, tl *TrackListConfig, pl *PlaylistsConfig, opts []Option) (*core, error) {
	if t == nil {
		return nil, ErrNoTransport
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if player.Metadata == nil || player.Metadata.IsZero() {
		return nil, ErrMissingMetadata
	}
	if pl != nil && pl.ActivePlaylist == nil {
		return nil, ErrMissingActivePlaylist
	}

	base.applyDefaults(name)
	player.applyDefaults()
	if pl != nil {
		pl.applyDefaults()
	}

	if err := base.validate(); err != nil {
		return nil, err
	}
	if err := player.validate(); err != nil {
		return nil, err
	}
	if tl != nil {
		if err := tl.validate(); err != nil {
			return nil, err
		}
	}
	if pl != nil {
		if err := pl.validate(); err != nil {
			return nil, err
		}
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard, "", 0)
	}

	c := &core{
		t:       t,
		busName: BusNamePrefix + name,
		variant: variantOf(tl != nil, pl != nil),
		log:     o.logger,
		base: baseState{
			canQuit:          base.CanQuit,
			fullscreen:       base.Fullscreen,
			canSetFullscreen: base.CanSetFullscreen,
			canRaise:         base.CanRaise,
			identity:         base.Identity,
			desktopEntry:     base.DesktopEntry,
			uriSchemes:       base.SupportedURISchemes,
			mimeTypes:        base.SupportedMIMETypes,
		},
		player: playerState{
			status:   player.PlaybackStatus,
			loop:     player.LoopStatus,
			rate:     player.Rate,
			minRate:  player.MinimumRate,
			maxRate:  player.MaximumRate,
			shuffle:  player.Shuffle,
			metadata: *player.Metadata,
			volume:   player.Volume,
			position: player.Position,
			caps: Capabilities{
				CanGoNext:     player.CanGoNext,
				CanGoPrevious: player.CanGoPrevious,
				CanPlay:       player.CanPlay,
				CanPause:      player.CanPause,
				CanSeek:       player.CanSeek,
			},
			canControl: player.CanControl,
		},
	}

	s := &slots{base: base, player: player}
	if tl != nil {
		s.trackList = *tl
		c.trackList = trackListState{
			tracks:        slices.Clone(tl.Tracks),
			canEditTracks: tl.CanEditTracks,
		}
		c.getTracksMetadata = tl.OnGetTracksMetadata
	}
	if pl != nil {
		s.playlists = *pl
		c.playlists = playlistsState{
			count:     pl.PlaylistCount,
			orderings: pl.Orderings,
			active:    *pl.ActivePlaylist,
		}
		c.getPlaylists = pl.OnGetPlaylists
	}
	c.dispatch = s
	if o.dispatcher != nil {
		c.dispatch = o.dispatcher
	}

	h, err := t.Publish(c.busName, ObjectPath, c)
	if err != nil {
		return nil, &TransportError{Op: "publish", Err: err}
	}
	c.handle = h
	c.log.Printf("mpris: published %s as %s", c.busName, c.variant)
	return c, nil
}
