package mpris

import (
	"fmt"
	"slices"

	"github.com/godbus/dbus/v5"
)

// Playlists is the façade for org.mpris.MediaPlayer2.Playlists.
// It only exists on *PlaylistsPlayer and *FullPlayer.
type Playlists struct {
	c *core
}

func (p *Playlists) PlaylistCount() uint32 {
	defer p.c.lock()()
	return p.c.playlists.count
}

func (p *Playlists) Orderings() []PlaylistOrdering {
	defer p.c.lock()()
	return slices.Clone(p.c.playlists.orderings)
}

func (p *Playlists) ActivePlaylist() MaybePlaylist {
	defer p.c.lock()()
	return p.c.playlists.active
}

func (p *Playlists) SetPlaylistCount(n uint32) error {
	return p.c.commit(func() (func(), error) {
		p.c.playlists.count = n
		return p.c.changedLocked(InterfacePlaylists, "PlaylistCount"), nil
	})
}

func (p *Playlists) SetOrderings(orderings ...PlaylistOrdering) error {
	if err := validateOrderings(orderings); err != nil {
		return err
	}
	orderings = slices.Clone(orderings)
	return p.c.commit(func() (func(), error) {
		p.c.playlists.orderings = orderings
		return p.c.changedLocked(InterfacePlaylists, "Orderings"), nil
	})
}

// SetActivePlaylist reports which playlist is playing; MaybePlaylist{} for none
func (p *Playlists) SetActivePlaylist(mp MaybePlaylist) error {
	if err := validateMaybePlaylist(mp); err != nil {
		return err
	}
	return p.c.commit(func() (func(), error) {
		p.c.playlists.active = mp
		return p.c.changedLocked(InterfacePlaylists, "ActivePlaylist"), nil
	})
}

// ActivatePlaylist asks the handler to start playing playlist id
func (p *Playlists) ActivatePlaylist(id dbus.ObjectPath) error {
	return p.c.relay(ActivatePlaylistIntent{PlaylistID: id}, false)
}

// GetPlaylists asks the playlist provider for a page of playlists
func (p *Playlists) GetPlaylists(q PlaylistQuery) ([]Playlist, error) {
	return p.c.playlistPage(q)
}

// PlaylistChanged announces a renamed or re-iconed playlist. The active
// playlist is refreshed when it is the one that changed.
func (p *Playlists) PlaylistChanged(pl Playlist) error {
	if err := validatePlaylist(pl); err != nil {
		return err
	}
	return p.c.commit(func() (func(), error) {
		st := &p.c.playlists
		if st.active.Valid && st.active.Playlist.ID == pl.ID {
			st.active.Playlist = pl
		}
		return func() {
			p.c.emitSignal(InterfacePlaylists, "PlaylistChanged", pl)
		}, nil
	})
}

func (c *core) playlistPage(q PlaylistQuery) (pls []Playlist, err error) {
	c.mu.Lock()
	closed := c.closed
	supported := slices.Contains(c.playlists.orderings, q.Order)
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if !supported {
		return nil, invalid("Order", "ordering %q is not offered", q.Order)
	}
	if c.getPlaylists == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mpris: GetPlaylists provider panicked: %v", r)
		}
	}()
	return c.getPlaylists(q)
}
