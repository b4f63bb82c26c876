package mpris_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/godbus/dbus/v5"

	"nowserving/mpris"
	"nowserving/mpris/mpristest"
)

func TestVariantTotality(t *testing.T) {
	tests := []struct {
		name      string
		trackList bool
		playlists bool
		variant   mpris.Variant
		ifaces    []string
	}{
		{"base", false, false, mpris.VariantBase,
			[]string{mpris.InterfaceMediaPlayer2, mpris.InterfacePlayer}},
		{"tracklist", true, false, mpris.VariantTrackList,
			[]string{mpris.InterfaceMediaPlayer2, mpris.InterfacePlayer, mpris.InterfaceTrackList}},
		{"playlists", false, true, mpris.VariantPlaylists,
			[]string{mpris.InterfaceMediaPlayer2, mpris.InterfacePlayer, mpris.InterfacePlaylists}},
		{"full", true, true, mpris.VariantFull,
			[]string{mpris.InterfaceMediaPlayer2, mpris.InterfacePlayer, mpris.InterfaceTrackList, mpris.InterfacePlaylists}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := mpristest.New()
			cfg := mpris.Config{Base: testBase(), Player: testPlayer(t)}
			if tt.trackList {
				tl := testTrackList()
				cfg.TrackList = &tl
			}
			if tt.playlists {
				pl := testPlaylists()
				cfg.Playlists = &pl
			}

			mp, err := mpris.Build(bus, testName, cfg)
			assertNoError(t, err)
			defer mp.Close()

			assertEqual(t, mp.Variant(), tt.variant, "variant")

			switch mp.(type) {
			case *mpris.FullPlayer:
				assertEqual(t, tt.variant, mpris.VariantFull, "type")
			case *mpris.TrackListPlayer:
				assertEqual(t, tt.variant, mpris.VariantTrackList, "type")
			case *mpris.PlaylistsPlayer:
				assertEqual(t, tt.variant, mpris.VariantPlaylists, "type")
			case *mpris.Player:
				assertEqual(t, tt.variant, mpris.VariantBase, "type")
			default:
				t.Fatalf("unexpected type %T", mp)
			}

			obj, ok := bus.Lookup(testBusName)
			if !ok {
				t.Fatal("player not published")
			}
			if got := obj.Interfaces(); !slices.Equal(got, tt.ifaces) {
				t.Errorf("interfaces = %v, want %v", got, tt.ifaces)
			}

			hasTL, err := bus.Get(testBusName, mpris.InterfaceMediaPlayer2, "HasTrackList")
			assertNoError(t, err)
			assertEqual(t, hasTL.Value(), tt.trackList, "HasTrackList")
		})
	}
}

func TestComposeValidation(t *testing.T) {
	empty := mpris.Metadata{}
	none := mpris.MaybePlaylist{}

	tests := []struct {
		name    string
		mutate  func(cfg *mpris.Config)
		wantErr error
		field   string
	}{
		{
			name:    "missing metadata",
			mutate:  func(cfg *mpris.Config) { cfg.Player.Metadata = nil },
			wantErr: mpris.ErrMissingMetadata,
		},
		{
			name:    "zero metadata",
			mutate:  func(cfg *mpris.Config) { cfg.Player.Metadata = &empty },
			wantErr: mpris.ErrMissingMetadata,
		},
		{
			name: "missing active playlist",
			mutate: func(cfg *mpris.Config) {
				cfg.Playlists = &mpris.PlaylistsConfig{PlaylistCount: 1}
			},
			wantErr: mpris.ErrMissingActivePlaylist,
		},
		{
			name: "metadata checked before playlists",
			mutate: func(cfg *mpris.Config) {
				cfg.Player.Metadata = nil
				cfg.Playlists = &mpris.PlaylistsConfig{}
			},
			wantErr: mpris.ErrMissingMetadata,
		},
		{
			name:   "rate above maximum",
			mutate: func(cfg *mpris.Config) { cfg.Player.Rate = 4 },
			field:  "Rate",
		},
		{
			name:   "maximum below one",
			mutate: func(cfg *mpris.Config) { cfg.Player.MaximumRate = 0.8; cfg.Player.Rate = 0.6 },
			field:  "MaximumRate",
		},
		{
			name:   "unknown playback status",
			mutate: func(cfg *mpris.Config) { cfg.Player.PlaybackStatus = "Rewinding" },
			field:  "PlaybackStatus",
		},
		{
			name:   "position past track end",
			mutate: func(cfg *mpris.Config) { cfg.Player.Position = 1 << 62 },
			field:  "Position",
		},
		{
			name: "duplicate track ids",
			mutate: func(cfg *mpris.Config) {
				cfg.TrackList = &mpris.TrackListConfig{Tracks: []dbus.ObjectPath{"/t/1", "/t/1"}}
			},
			field: "Tracks",
		},
		{
			name: "unknown ordering",
			mutate: func(cfg *mpris.Config) {
				cfg.Playlists = &mpris.PlaylistsConfig{ActivePlaylist: &none, Orderings: []mpris.PlaylistOrdering{"Random"}}
			},
			field: "Orderings",
		},
		{
			name:   "bad scheme",
			mutate: func(cfg *mpris.Config) { cfg.Base.SupportedURISchemes = []string{"file:"} },
			field:  "SupportedUriSchemes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := mpristest.New()
			cfg := mpris.Config{Base: testBase(), Player: testPlayer(t)}
			tt.mutate(&cfg)

			mp, err := mpris.Build(bus, testName, cfg)
			if mp != nil {
				t.Error("no player may be returned on failure")
			}
			if tt.wantErr != nil {
				assertErrorIs(t, err, tt.wantErr)
			} else {
				var verr *mpris.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
				assertEqual(t, verr.Field, tt.field, "field")
			}
			if names := bus.Names(); len(names) != 0 {
				t.Errorf("nothing may be published, found %v", names)
			}
		})
	}
}

func TestComposeRequiresTransport(t *testing.T) {
	_, err := mpris.Compose(nil, testName, testBase(), testPlayer(t))
	assertErrorIs(t, err, mpris.ErrNoTransport)
}

func TestComposeRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "has space", "1leading", "a..b", "trailing."} {
		t.Run(name, func(t *testing.T) {
			_, err := mpris.Compose(mpristest.New(), name, testBase(), testPlayer(t))
			var verr *mpris.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected *ValidationError for %q, got %v", name, err)
			}
		})
	}

	p, err := mpris.Compose(mpristest.New(), "vlc.instance_42", testBase(), testPlayer(t))
	assertNoError(t, err)
	assertEqual(t, p.BusName(), "org.mpris.MediaPlayer2.vlc.instance_42", "bus name")
}

func TestComposeTransportFailure(t *testing.T) {
	bus := mpristest.New()
	boom := errors.New("bus unavailable")
	bus.FailPublish(boom)

	_, err := mpris.ComposeAll(bus, testName, testBase(), testPlayer(t), testTrackList(), testPlaylists())

	var terr *mpris.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	assertEqual(t, terr.Op, "publish", "op")
	assertErrorIs(t, err, boom)
	if _, ok := bus.Lookup(testBusName); ok {
		t.Error("failed publish left an object registered")
	}
}

func TestComposeNameConflict(t *testing.T) {
	bus := mpristest.New()
	first, err := mpris.Compose(bus, testName, testBase(), testPlayer(t))
	assertNoError(t, err)

	_, err = mpris.Compose(bus, testName, testBase(), testPlayer(t))
	assertErrorIs(t, err, mpristest.ErrNameTaken)

	assertNoError(t, first.Close())
	if _, ok := bus.Lookup(testBusName); ok {
		t.Error("Close should unpublish")
	}

	again, err := mpris.Compose(bus, testName, testBase(), testPlayer(t))
	assertNoError(t, err)
	again.Close()
}

func TestComposeDefaults(t *testing.T) {
	bus := mpristest.New()
	m := mustTrack(t, "/t/1", "x")
	base := mpris.BaseConfig{DesktopEntry: "nowserving.desktop"}
	player := mpris.PlayerConfig{Metadata: &m, Volume: -3}
	none := mpris.MaybePlaylist{}

	p, err := mpris.ComposeWithPlaylists(bus, testName, base, player, mpris.PlaylistsConfig{ActivePlaylist: &none})
	assertNoError(t, err)
	defer p.Close()

	assertEqual(t, p.DesktopEntry(), "nowserving", "desktop entry")
	assertEqual(t, p.Identity(), "nowserving", "identity")
	assertEqual(t, p.Rate(), 1.0, "rate")
	assertEqual(t, p.MinimumRate(), 1.0, "minimum rate")
	assertEqual(t, p.MaximumRate(), 1.0, "maximum rate")
	assertEqual(t, p.Volume(), 0.0, "volume")
	assertEqual(t, p.PlaybackStatus(), mpris.Stopped, "playback status")
	assertEqual(t, p.LoopStatus(), mpris.LoopNone, "loop status")
	if got := p.Orderings(); len(got) != 1 || got[0] != mpris.OrderUserDefined {
		t.Errorf("orderings = %v, want [User]", got)
	}

	unnamed, err := mpris.Compose(mpristest.New(), "bare", mpris.BaseConfig{}, player)
	assertNoError(t, err)
	assertEqual(t, unnamed.Identity(), "bare", "identity from name")
}

func TestComposeTakesConfigByValue(t *testing.T) {
	bus := mpristest.New()
	base := testBase()
	tl := testTrackList()

	p, err := mpris.ComposeWithTrackList(bus, testName, base, testPlayer(t), tl)
	assertNoError(t, err)
	defer p.Close()

	base.SupportedURISchemes[0] = "gopher"
	tl.Tracks[0] = "/t/changed"

	assertEqual(t, p.SupportedURISchemes()[0], "file", "scheme")
	assertEqual(t, p.Tracks()[0], dbus.ObjectPath("/t/1"), "track")
}

func TestComposeTakesPlaylistsConfigByValue(t *testing.T) {
	pls := testPlaylists()

	p, err := mpris.ComposeWithPlaylists(mpristest.New(), testName, testBase(), testPlayer(t), pls)
	assertNoError(t, err)
	defer p.Close()

	pls.Orderings[0] = mpris.OrderCreationDate
	pls.ActivePlaylist.Playlist.Name = "Changed"
	pls.ActivePlaylist.Valid = false

	assertEqual(t, p.Orderings()[0], mpris.OrderAlphabetical, "ordering")
	active := p.ActivePlaylist()
	assertEqual(t, active.Valid, true, "active valid")
	assertEqual(t, active.Playlist.Name, "Favourites", "active name")
}
