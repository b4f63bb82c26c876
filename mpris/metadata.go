package mpris

import (
	"errors"
	"net/url"
	"slices"
	"time"

	"github.com/godbus/dbus/v5"
)

// Metadata keys defined by the MPRIS and xesam vocabularies
const (
	KeyTrackID     = "mpris:trackid"
	KeyLength      = "mpris:length"
	KeyArtURL      = "mpris:artUrl"
	KeyAlbum       = "xesam:album"
	KeyAlbumArtist = "xesam:albumArtist"
	KeyArtist      = "xesam:artist"
	KeyTitle       = "xesam:title"
	KeyTrackNumber = "xesam:trackNumber"
	KeyDiscNumber  = "xesam:discNumber"
	KeyGenre       = "xesam:genre"
	KeyURL         = "xesam:url"
)

// Metadata describes one track. It is created by MetadataBuilder and never
// changes afterwards; every accessor returns a copy.
type Metadata struct {
	trackID      dbus.ObjectPath
	length       time.Duration
	hasLength    bool
	artURL       string
	url          string
	album        string
	albumArtists []string
	artists      []string
	title        string
	trackNumber  int
	discNumber   int
	genres       []string
}

func (m Metadata) TrackID() dbus.ObjectPath { return m.trackID }

// Length returns the track length and whether it is known
func (m Metadata) Length() (time.Duration, bool) { return m.length, m.hasLength }

func (m Metadata) ArtURL() string         { return m.artURL }
func (m Metadata) URL() string            { return m.url }
func (m Metadata) Album() string          { return m.album }
func (m Metadata) AlbumArtists() []string { return slices.Clone(m.albumArtists) }
func (m Metadata) Artists() []string      { return slices.Clone(m.artists) }
func (m Metadata) Title() string          { return m.title }
func (m Metadata) TrackNumber() int       { return m.trackNumber }
func (m Metadata) DiscNumber() int        { return m.discNumber }
func (m Metadata) Genres() []string       { return slices.Clone(m.genres) }

// IsZero reports whether m was never built. A built Metadata always has a track id.
func (m Metadata) IsZero() bool {
	return m.trackID == ""
}

// Equal reports whether m and o carry the same field values
func (m Metadata) Equal(o Metadata) bool {
	return m.trackID == o.trackID &&
		m.length == o.length && m.hasLength == o.hasLength &&
		m.artURL == o.artURL && m.url == o.url &&
		m.album == o.album && m.title == o.title &&
		m.trackNumber == o.trackNumber && m.discNumber == o.discNumber &&
		slices.Equal(m.albumArtists, o.albumArtists) &&
		slices.Equal(m.artists, o.artists) &&
		slices.Equal(m.genres, o.genres)
}

// Variants renders the metadata as the a{sv} map sent on the bus.
// Fields that were never set are omitted.
func (m Metadata) Variants() map[string]dbus.Variant {
	out := map[string]dbus.Variant{
		KeyTrackID: dbus.MakeVariant(m.trackID),
	}
	if m.hasLength {
		out[KeyLength] = dbus.MakeVariant(m.length.Microseconds())
	}
	if m.artURL != "" {
		out[KeyArtURL] = dbus.MakeVariant(m.artURL)
	}
	if m.url != "" {
		out[KeyURL] = dbus.MakeVariant(m.url)
	}
	if m.album != "" {
		out[KeyAlbum] = dbus.MakeVariant(m.album)
	}
	if len(m.albumArtists) > 0 {
		out[KeyAlbumArtist] = dbus.MakeVariant(slices.Clone(m.albumArtists))
	}
	if len(m.artists) > 0 {
		out[KeyArtist] = dbus.MakeVariant(slices.Clone(m.artists))
	}
	if m.title != "" {
		out[KeyTitle] = dbus.MakeVariant(m.title)
	}
	if m.trackNumber > 0 {
		out[KeyTrackNumber] = dbus.MakeVariant(int32(m.trackNumber))
	}
	if m.discNumber > 0 {
		out[KeyDiscNumber] = dbus.MakeVariant(int32(m.discNumber))
	}
	if len(m.genres) > 0 {
		out[KeyGenre] = dbus.MakeVariant(slices.Clone(m.genres))
	}
	return out
}

// MetadataBuilder stages and validates Metadata fields one at a time.
// Setters record validation failures instead of returning them so calls can
// be chained; Build reports all of them.
type MetadataBuilder struct {
	m    Metadata
	errs []error
}

// NewMetadataBuilder returns an empty builder
func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{}
}

func (b *MetadataBuilder) fail(err error) *MetadataBuilder {
	b.errs = append(b.errs, err)
	return b
}

// TrackID sets the unique track identifier
func (b *MetadataBuilder) TrackID(id dbus.ObjectPath) *MetadataBuilder {
	if err := validateTrackID(KeyTrackID, id); err != nil {
		return b.fail(err)
	}
	b.m.trackID = id
	return b
}

// Length sets the track duration
func (b *MetadataBuilder) Length(d time.Duration) *MetadataBuilder {
	if d < 0 {
		return b.fail(invalid(KeyLength, "negative length %s", d))
	}
	b.m.length = d
	b.m.hasLength = true
	return b
}

// ArtURL sets the location of the cover art
func (b *MetadataBuilder) ArtURL(raw string) *MetadataBuilder {
	if err := validateURI(KeyArtURL, raw); err != nil {
		return b.fail(err)
	}
	b.m.artURL = raw
	return b
}

// URL sets the location of the media itself
func (b *MetadataBuilder) URL(raw string) *MetadataBuilder {
	if err := validateURI(KeyURL, raw); err != nil {
		return b.fail(err)
	}
	b.m.url = raw
	return b
}

func (b *MetadataBuilder) AlbumName(name string) *MetadataBuilder {
	b.m.album = name
	return b
}

func (b *MetadataBuilder) AlbumArtists(artists ...string) *MetadataBuilder {
	b.m.albumArtists = slices.Clone(artists)
	return b
}

func (b *MetadataBuilder) Artists(artists ...string) *MetadataBuilder {
	b.m.artists = slices.Clone(artists)
	return b
}

func (b *MetadataBuilder) Title(title string) *MetadataBuilder {
	b.m.title = title
	return b
}

// TrackNumber sets the 1-based position of the track on its disc
func (b *MetadataBuilder) TrackNumber(n int) *MetadataBuilder {
	if n <= 0 {
		return b.fail(invalid(KeyTrackNumber, "must be positive, got %d", n))
	}
	b.m.trackNumber = n
	return b
}

// DiscNumber sets the 1-based disc number
func (b *MetadataBuilder) DiscNumber(n int) *MetadataBuilder {
	if n <= 0 {
		return b.fail(invalid(KeyDiscNumber, "must be positive, got %d", n))
	}
	b.m.discNumber = n
	return b
}

func (b *MetadataBuilder) Genres(genres ...string) *MetadataBuilder {
	b.m.genres = slices.Clone(genres)
	return b
}

// Build returns the staged Metadata, or every validation error recorded so far
func (b *MetadataBuilder) Build() (Metadata, error) {
	errs := slices.Clone(b.errs)
	if b.m.trackID == "" {
		errs = append(errs, invalid(KeyTrackID, "must be set"))
	}
	if len(errs) > 0 {
		return Metadata{}, errors.Join(errs...)
	}
	m := b.m
	m.albumArtists = slices.Clone(m.albumArtists)
	m.artists = slices.Clone(m.artists)
	m.genres = slices.Clone(m.genres)
	return m, nil
}

func validateTrackID(field string, id dbus.ObjectPath) error {
	if !id.IsValid() {
		return invalid(field, "%q is not a valid object path", id)
	}
	if id == NoTrack {
		return invalid(field, "%s is reserved", NoTrack)
	}
	return nil
}

func validateURI(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return invalid(field, "%v", err)
	}
	if !u.IsAbs() {
		return invalid(field, "%q is not an absolute URI", raw)
	}
	return nil
}
