package mpris_test

import (
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"nowserving/mpris"
	"nowserving/mpris/mpristest"
)

const (
	testName    = "nowserving.test"
	testBusName = mpris.BusNamePrefix + testName
)

// assertNoError fails the test immediately if err is set
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// assertErrorIs checks that err wraps target
func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("Expected error %v, got %v", target, err)
	}
}

func assertEqual(t *testing.T, got, want interface{}, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

func mustTrack(t *testing.T, id, title string) mpris.Metadata {
	t.Helper()
	m, err := mpris.Track(dbus.ObjectPath(id), title, "Test Artist", mpris.WithLength(3*time.Minute))
	assertNoError(t, err)
	return m
}

func testBase() mpris.BaseConfig {
	return mpris.BaseConfig{
		CanQuit:             true,
		CanRaise:            true,
		Identity:            "Test Player",
		SupportedURISchemes: []string{"file", "https"},
		SupportedMIMETypes:  []string{"audio/flac"},
	}
}

func testPlayer(t *testing.T) mpris.PlayerConfig {
	t.Helper()
	m := mustTrack(t, "/t/1", "First")
	return mpris.PlayerConfig{
		Metadata:      &m,
		Volume:        0.5,
		MinimumRate:   0.5,
		MaximumRate:   2,
		CanGoNext:     true,
		CanGoPrevious: true,
		CanPlay:       true,
		CanPause:      true,
		CanSeek:       true,
		CanControl:    true,
	}
}

func testTrackList() mpris.TrackListConfig {
	return mpris.TrackListConfig{
		Tracks:        []dbus.ObjectPath{"/t/1", "/t/2"},
		CanEditTracks: true,
	}
}

func testPlaylists() mpris.PlaylistsConfig {
	active := mpris.Active(mpris.Playlist{ID: "/p/1", Name: "Favourites"})
	return mpris.PlaylistsConfig{
		PlaylistCount:  2,
		Orderings:      []mpris.PlaylistOrdering{mpris.OrderAlphabetical, mpris.OrderUserDefined},
		ActivePlaylist: &active,
	}
}

// recorder is a Dispatcher that keeps every intent it receives
type recorder struct {
	intents []mpris.Intent
	err     error
}

func (r *recorder) Dispatch(in mpris.Intent) error {
	r.intents = append(r.intents, in)
	return r.err
}

func newPlayer(t *testing.T, opts ...mpris.Option) (*mpris.Player, *mpristest.Bus) {
	t.Helper()
	bus := mpristest.New()
	p, err := mpris.Compose(bus, testName, testBase(), testPlayer(t), opts...)
	assertNoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, bus
}

func newFullPlayer(t *testing.T, opts ...mpris.Option) (*mpris.FullPlayer, *mpristest.Bus) {
	t.Helper()
	bus := mpristest.New()
	p, err := mpris.ComposeAll(bus, testName, testBase(), testPlayer(t), testTrackList(), testPlaylists(), opts...)
	assertNoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, bus
}
