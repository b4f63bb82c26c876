package main

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"nowserving/mpris"
)

const (
	trackPathPrefix    = "/org/nowserving/Track/"
	playlistPathPrefix = "/org/nowserving/Playlist/"
)

// LibraryTrack is one entry of the library file
type LibraryTrack struct {
	File        string        `yaml:"file"`
	Title       string        `yaml:"title"`
	Artist      string        `yaml:"artist"`
	Album       string        `yaml:"album"`
	Art         string        `yaml:"art"`
	Length      time.Duration `yaml:"length"`
	TrackNumber int           `yaml:"track_number"`
	Genres      []string      `yaml:"genres"`

	uri    string
	artURL string
}

// LibraryPlaylist groups library tracks by file
type LibraryPlaylist struct {
	Name  string   `yaml:"name"`
	Icon  string   `yaml:"icon"`
	Files []string `yaml:"tracks"`

	id dbus.ObjectPath
}

// Library is the music collection the player serves from. It is read once
// at startup and not modified afterwards.
type Library struct {
	Tracks    []LibraryTrack    `yaml:"tracks"`
	Playlists []LibraryPlaylist `yaml:"playlists"`

	byURI map[string]int
}

// loadLibrary reads the YAML library at name. An empty name yields an
// empty library.
func loadLibrary(fs afero.Fs, name string) (*Library, error) {
	lib := &Library{}
	if name == "" {
		return lib, lib.resolve("")
	}
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}
	if err := yaml.Unmarshal(data, lib); err != nil {
		return nil, fmt.Errorf("failed to parse library %s: %w", name, err)
	}
	if err := lib.resolve(filepath.Dir(name)); err != nil {
		return nil, fmt.Errorf("library %s: %w", name, err)
	}
	return lib, nil
}

// resolve turns relative file and art paths into URIs and assigns playlist ids
func (l *Library) resolve(dir string) error {
	l.byURI = make(map[string]int, len(l.Tracks))
	var errs []error
	for i := range l.Tracks {
		t := &l.Tracks[i]
		if t.File == "" {
			errs = append(errs, fmt.Errorf("track %d has no file", i+1))
			continue
		}
		t.uri = toURI(dir, t.File)
		if t.Art != "" {
			t.artURL = toURI(dir, t.Art)
		}
		if t.Title == "" {
			t.Title = titleFromURI(t.uri)
		}
		if _, dup := l.byURI[t.uri]; dup {
			errs = append(errs, fmt.Errorf("track %s is listed twice", t.File))
			continue
		}
		l.byURI[t.uri] = i
	}

	names := make(map[string]bool, len(l.Playlists))
	for i := range l.Playlists {
		pl := &l.Playlists[i]
		if pl.Name == "" {
			errs = append(errs, fmt.Errorf("playlist %d has no name", i+1))
			continue
		}
		if names[pl.Name] {
			errs = append(errs, fmt.Errorf("playlist %q is listed twice", pl.Name))
			continue
		}
		names[pl.Name] = true
		pl.id = playlistID(pl.Name)
		if pl.Icon != "" {
			pl.Icon = toURI(dir, pl.Icon)
		}
		for _, f := range pl.Files {
			if _, ok := l.byURI[toURI(dir, f)]; !ok {
				errs = append(errs, fmt.Errorf("playlist %q: unknown track %s", pl.Name, f))
			}
		}
		for j, f := range pl.Files {
			pl.Files[j] = toURI(dir, f)
		}
	}
	return errors.Join(errs...)
}

// trackForURI returns the library entry for uri, or a bare entry titled
// after the file name when the library does not know it
func (l *Library) trackForURI(uri string) LibraryTrack {
	if i, ok := l.byURI[uri]; ok {
		return l.Tracks[i]
	}
	return LibraryTrack{File: uri, Title: titleFromURI(uri), uri: uri}
}

func (l *Library) playlist(id dbus.ObjectPath) (mpris.Playlist, []LibraryTrack, bool) {
	for _, pl := range l.Playlists {
		if pl.id != id {
			continue
		}
		tracks := make([]LibraryTrack, 0, len(pl.Files))
		for _, uri := range pl.Files {
			tracks = append(tracks, l.trackForURI(uri))
		}
		return pl.toMPRIS(), tracks, true
	}
	return mpris.Playlist{}, nil, false
}

// Page answers GetPlaylists. Only the alphabetical and user orderings are
// offered since the library file has no dates.
func (l *Library) Page(q mpris.PlaylistQuery) ([]mpris.Playlist, error) {
	all := make([]mpris.Playlist, 0, len(l.Playlists))
	for _, pl := range l.Playlists {
		all = append(all, pl.toMPRIS())
	}
	switch q.Order {
	case mpris.OrderAlphabetical:
		slices.SortStableFunc(all, func(a, b mpris.Playlist) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	case mpris.OrderUserDefined:
	default:
		return nil, fmt.Errorf("ordering %s is not supported", q.Order)
	}
	if q.Reverse {
		slices.Reverse(all)
	}
	if int(q.Index) >= len(all) {
		return []mpris.Playlist{}, nil
	}
	end := min(uint64(q.Index)+uint64(q.MaxCount), uint64(len(all)))
	return all[q.Index:end], nil
}

func (pl LibraryPlaylist) toMPRIS() mpris.Playlist {
	return mpris.Playlist{ID: pl.id, Name: pl.Name, Icon: pl.Icon}
}

// metadata describes t under the given queue id
func (t LibraryTrack) metadata(id dbus.ObjectPath) (mpris.Metadata, error) {
	b := mpris.NewMetadataBuilder().TrackID(id).Title(t.Title).URL(t.uri)
	if t.Artist != "" {
		b.Artists(t.Artist)
	}
	if t.Album != "" {
		b.AlbumName(t.Album)
	}
	if t.artURL != "" {
		b.ArtURL(t.artURL)
	}
	if t.Length > 0 {
		b.Length(t.Length)
	}
	if t.TrackNumber > 0 {
		b.TrackNumber(t.TrackNumber)
	}
	if len(t.Genres) > 0 {
		b.Genres(t.Genres...)
	}
	return b.Build()
}

// newTrackID returns a fresh queue entry id. The same file may be queued
// more than once, so ids are per entry rather than per file.
func newTrackID() dbus.ObjectPath {
	return dbus.ObjectPath(trackPathPrefix + hexID(uuid.New()))
}

// playlistID is stable across restarts so controllers can remember playlists
func playlistID(name string) dbus.ObjectPath {
	return dbus.ObjectPath(playlistPathPrefix + hexID(uuid.NewSHA1(uuid.NameSpaceURL, []byte("nowserving:playlist:"+name))))
}

// object path elements only allow [A-Za-z0-9_]
func hexID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

func toURI(dir, p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	if !filepath.IsAbs(p) && dir != "" {
		p = filepath.Join(dir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

func titleFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return uri
	}
	base := path.Base(u.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}
