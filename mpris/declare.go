package mpris

import (
	"errors"
	"time"

	"github.com/godbus/dbus/v5"
)

// Declaration collects configuration blocks for Declare. Each block may be
// given more than once; later blocks see the values left by earlier ones.
type Declaration struct {
	cfg  Config
	errs []error
}

// MediaPlayer2 configures the base interface
func (d *Declaration) MediaPlayer2(fn func(*BaseConfig)) {
	fn(&d.cfg.Base)
}

// Player configures the player interface
func (d *Declaration) Player(fn func(*PlayerConfig)) {
	fn(&d.cfg.Player)
}

// Metadata builds the current track. A build failure is returned by Declare.
func (d *Declaration) Metadata(fn func(*MetadataBuilder)) {
	b := NewMetadataBuilder()
	fn(b)
	m, err := b.Build()
	if err != nil {
		d.errs = append(d.errs, err)
		return
	}
	d.cfg.Player.Metadata = &m
}

// TrackList adds the TrackList interface and configures it
func (d *Declaration) TrackList(fn func(*TrackListConfig)) {
	if d.cfg.TrackList == nil {
		d.cfg.TrackList = &TrackListConfig{}
	}
	fn(d.cfg.TrackList)
}

// Playlists adds the Playlists interface and configures it
func (d *Declaration) Playlists(fn func(*PlaylistsConfig)) {
	if d.cfg.Playlists == nil {
		d.cfg.Playlists = &PlaylistsConfig{}
	}
	fn(d.cfg.Playlists)
}

// Config returns what has been declared so far
func (d *Declaration) Config() Config {
	return d.cfg
}

// Declare runs fn against a fresh Declaration and builds the result
func Declare(t Transport, name string, fn func(*Declaration), opts ...Option) (MediaPlayer, error) {
	d := &Declaration{}
	fn(d)
	if len(d.errs) > 0 {
		return nil, errors.Join(d.errs...)
	}
	return Build(t, name, d.cfg, opts...)
}

// Simple declares a player with everything a typical music player offers:
// quit and raise, file and http(s) URIs, common audio types and every
// control enabled. fn may override any of it.
func Simple(t Transport, name, identity string, fn func(*Declaration), opts ...Option) (MediaPlayer, error) {
	return Declare(t, name, func(d *Declaration) {
		d.MediaPlayer2(func(b *BaseConfig) {
			b.Identity = identity
			b.CanQuit = true
			b.CanRaise = true
			b.SupportedURISchemes = []string{"file", "http", "https"}
			b.SupportedMIMETypes = []string{"audio/mpeg", "audio/flac", "audio/ogg"}
		})
		d.Player(func(p *PlayerConfig) {
			p.CanGoNext = true
			p.CanGoPrevious = true
			p.CanPlay = true
			p.CanPause = true
			p.CanSeek = true
			p.CanControl = true
		})
		if fn != nil {
			fn(d)
		}
	}, opts...)
}

// TrackOption sets an optional field in Track
type TrackOption func(*MetadataBuilder)

func WithAlbum(name string) TrackOption {
	return func(b *MetadataBuilder) { b.AlbumName(name) }
}

func WithTrackNumber(n int) TrackOption {
	return func(b *MetadataBuilder) { b.TrackNumber(n) }
}

func WithLength(d time.Duration) TrackOption {
	return func(b *MetadataBuilder) { b.Length(d) }
}

func WithArtURL(u string) TrackOption {
	return func(b *MetadataBuilder) { b.ArtURL(u) }
}

func WithURL(u string) TrackOption {
	return func(b *MetadataBuilder) { b.URL(u) }
}

func WithGenres(genres ...string) TrackOption {
	return func(b *MetadataBuilder) { b.Genres(genres...) }
}

// Track builds metadata for the common id/title/artist case
func Track(id dbus.ObjectPath, title, artist string, opts ...TrackOption) (Metadata, error) {
	b := NewMetadataBuilder().TrackID(id).Title(title)
	if artist != "" {
		b.Artists(artist)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b.Build()
}
