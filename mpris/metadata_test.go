package mpris_test

import (
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"nowserving/mpris"
)

func TestMetadataRoundTrip(t *testing.T) {
	m, err := mpris.NewMetadataBuilder().
		TrackID("/t/1").
		Title("A").
		Artists("B").
		TrackNumber(2).
		Build()
	assertNoError(t, err)

	assertEqual(t, m.TrackID(), dbus.ObjectPath("/t/1"), "TrackID")
	assertEqual(t, m.Title(), "A", "Title")
	assertEqual(t, m.TrackNumber(), 2, "TrackNumber")
	if got := m.Artists(); len(got) != 1 || got[0] != "B" {
		t.Errorf("Artists = %v, want [B]", got)
	}
	if _, ok := m.Length(); ok {
		t.Error("Length should be absent")
	}
}

func TestMetadataIsImmutable(t *testing.T) {
	artists := []string{"B", "C"}
	b := mpris.NewMetadataBuilder().TrackID("/t/1").Artists(artists...)
	m, err := b.Build()
	assertNoError(t, err)

	artists[0] = "changed"
	got := m.Artists()
	got[1] = "changed too"
	b.Artists("X")

	if again := m.Artists(); again[0] != "B" || again[1] != "C" {
		t.Errorf("Artists changed after Build: %v", again)
	}
}

func TestMetadataBuilderValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *mpris.MetadataBuilder)
		field string
	}{
		{"missing track id", func(b *mpris.MetadataBuilder) { b.Title("x") }, mpris.KeyTrackID},
		{"bad track id", func(b *mpris.MetadataBuilder) { b.TrackID("not/a/path") }, mpris.KeyTrackID},
		{"no track sentinel", func(b *mpris.MetadataBuilder) { b.TrackID(mpris.NoTrack) }, mpris.KeyTrackID},
		{"negative length", func(b *mpris.MetadataBuilder) { b.TrackID("/t/1").Length(-time.Second) }, mpris.KeyLength},
		{"relative art url", func(b *mpris.MetadataBuilder) { b.TrackID("/t/1").ArtURL("cover.jpg") }, mpris.KeyArtURL},
		{"relative url", func(b *mpris.MetadataBuilder) { b.TrackID("/t/1").URL("song.flac") }, mpris.KeyURL},
		{"zero track number", func(b *mpris.MetadataBuilder) { b.TrackID("/t/1").TrackNumber(0) }, mpris.KeyTrackNumber},
		{"negative disc number", func(b *mpris.MetadataBuilder) { b.TrackID("/t/1").DiscNumber(-1) }, mpris.KeyDiscNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mpris.NewMetadataBuilder()
			tt.build(b)
			m, err := b.Build()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var verr *mpris.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error %v is not a *ValidationError", err)
			}
			assertEqual(t, verr.Field, tt.field, "field")
			if !m.IsZero() {
				t.Error("a failed Build must not return metadata")
			}
		})
	}
}

func TestMetadataBuilderReportsEveryError(t *testing.T) {
	_, err := mpris.NewMetadataBuilder().TrackNumber(0).Length(-1).Build()

	fields := map[string]bool{}
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var verr *mpris.ValidationError
		if errors.As(e, &verr) {
			fields[verr.Field] = true
		}
	}
	for _, f := range []string{mpris.KeyTrackNumber, mpris.KeyLength, mpris.KeyTrackID} {
		if !fields[f] {
			t.Errorf("missing error for %s in %v", f, err)
		}
	}
}

func TestMetadataVariants(t *testing.T) {
	m, err := mpris.NewMetadataBuilder().
		TrackID("/t/9").
		Length(90*time.Second).
		ArtURL("file:///tmp/cover.png").
		URL("https://example.com/a.flac").
		AlbumName("Album").
		AlbumArtists("AA").
		Artists("B", "C").
		Title("Song").
		TrackNumber(3).
		DiscNumber(1).
		Genres("Jazz").
		Build()
	assertNoError(t, err)

	v := m.Variants()
	assertEqual(t, v[mpris.KeyTrackID].Value(), dbus.ObjectPath("/t/9"), "trackid")
	assertEqual(t, v[mpris.KeyLength].Value(), int64(90_000_000), "length")
	assertEqual(t, v[mpris.KeyTrackNumber].Value(), int32(3), "trackNumber")
	assertEqual(t, v[mpris.KeyArtURL].Value(), "file:///tmp/cover.png", "artUrl")
	assertEqual(t, v[mpris.KeyArtist].Signature().String(), "as", "artist signature")
	assertEqual(t, len(v), 11, "key count")

	minimal, err := mpris.NewMetadataBuilder().TrackID("/t/1").Build()
	assertNoError(t, err)
	if got := minimal.Variants(); len(got) != 1 {
		t.Errorf("unset fields should be omitted, got %v", got)
	}
}

func TestMetadataEqual(t *testing.T) {
	a := mustTrack(t, "/t/1", "Same")
	b := mustTrack(t, "/t/1", "Same")
	c := mustTrack(t, "/t/1", "Different")

	if !a.Equal(b) {
		t.Error("identical metadata should be equal")
	}
	if a.Equal(c) {
		t.Error("different titles should not be equal")
	}
}

func TestStatusParsing(t *testing.T) {
	for _, s := range []string{"Playing", "Paused", "Stopped"} {
		got, err := mpris.ParsePlaybackStatus(s)
		assertNoError(t, err)
		assertEqual(t, got.String(), s, "playback status")
	}
	if _, err := mpris.ParsePlaybackStatus("playing"); err == nil {
		t.Error("status parsing should be case sensitive")
	}

	loop := mpris.LoopNone
	for _, want := range []mpris.LoopStatus{mpris.LoopTrack, mpris.LoopPlaylist, mpris.LoopNone} {
		loop = loop.Next()
		assertEqual(t, loop, want, "loop cycle")
	}

	if _, err := mpris.ParsePlaylistOrdering("Random"); err == nil {
		t.Error("unknown ordering should fail")
	}
}
