package mpris

import (
	"fmt"
	"slices"
	"time"

	"github.com/godbus/dbus/v5"
)

func (c *core) Interfaces() []string {
	return c.variant.Interfaces()
}

func (c *core) hasInterface(iface string) bool {
	return slices.Contains(c.variant.Interfaces(), iface)
}

// Call dispatches an inbound method call. Controls refused by the current
// capability flags succeed without effect, as the protocol requires.
func (c *core) Call(iface, method string, args []any) ([]any, error) {
	if !c.hasInterface(iface) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInterface, iface)
	}
	switch iface {
	case InterfaceMediaPlayer2:
		return c.callBase(method, args)
	case InterfacePlayer:
		return c.callPlayer(method, args)
	case InterfaceTrackList:
		return c.callTrackList(method, args)
	case InterfacePlaylists:
		return c.callPlaylists(method, args)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownInterface, iface)
}

func (c *core) callBase(method string, args []any) ([]any, error) {
	var in Intent
	switch method {
	case "Raise":
		in = RaiseIntent{}
	case "Quit":
		in = QuitIntent{}
	default:
		return nil, unknownMethod(InterfaceMediaPlayer2, method)
	}
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	return nil, c.relay(in, true)
}

func (c *core) callPlayer(method string, args []any) ([]any, error) {
	var in Intent
	switch method {
	case "Next":
		in = NextIntent{}
	case "Previous":
		in = PreviousIntent{}
	case "Pause":
		in = PauseIntent{}
	case "PlayPause":
		in = PlayPauseIntent{}
	case "Stop":
		in = StopIntent{}
	case "Play":
		in = PlayIntent{}
	case "Seek":
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		offset, err := arg[int64](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.relay(SeekIntent{Offset: time.Duration(offset) * time.Microsecond}, true)
	case "SetPosition":
		if err := wantArgs(args, 2); err != nil {
			return nil, err
		}
		id, err := arg[dbus.ObjectPath](args, 0)
		if err != nil {
			return nil, err
		}
		pos, err := arg[int64](args, 1)
		if err != nil {
			return nil, err
		}
		return nil, c.relay(SetPositionIntent{TrackID: id, Position: time.Duration(pos) * time.Microsecond}, true)
	case "OpenUri":
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		uri, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.relay(OpenURIIntent{URI: uri}, true)
	default:
		return nil, unknownMethod(InterfacePlayer, method)
	}
	if err := wantArgs(args, 0); err != nil {
		return nil, err
	}
	return nil, c.relay(in, true)
}

func (c *core) callTrackList(method string, args []any) ([]any, error) {
	switch method {
	case "GetTracksMetadata":
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		ids, err := arg[[]dbus.ObjectPath](args, 0)
		if err != nil {
			return nil, err
		}
		ms, err := c.tracksMetadata(ids)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]dbus.Variant, 0, len(ms))
		for _, m := range ms {
			out = append(out, m.Variants())
		}
		return []any{out}, nil
	case "AddTrack":
		if err := wantArgs(args, 3); err != nil {
			return nil, err
		}
		uri, err := arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		after, err := arg[dbus.ObjectPath](args, 1)
		if err != nil {
			return nil, err
		}
		current, err := arg[bool](args, 2)
		if err != nil {
			return nil, err
		}
		return nil, c.relay(AddTrackIntent{URI: uri, After: after, SetAsCurrent: current}, true)
	case "RemoveTrack", "GoTo":
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		id, err := arg[dbus.ObjectPath](args, 0)
		if err != nil {
			return nil, err
		}
		if method == "GoTo" {
			return nil, c.relay(GoToIntent{TrackID: id}, true)
		}
		return nil, c.relay(RemoveTrackIntent{TrackID: id}, true)
	}
	return nil, unknownMethod(InterfaceTrackList, method)
}

func (c *core) callPlaylists(method string, args []any) ([]any, error) {
	switch method {
	case "ActivatePlaylist":
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		id, err := arg[dbus.ObjectPath](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.relay(ActivatePlaylistIntent{PlaylistID: id}, true)
	case "GetPlaylists":
		if err := wantArgs(args, 4); err != nil {
			return nil, err
		}
		index, err := arg[uint32](args, 0)
		if err != nil {
			return nil, err
		}
		count, err := arg[uint32](args, 1)
		if err != nil {
			return nil, err
		}
		order, err := arg[string](args, 2)
		if err != nil {
			return nil, err
		}
		reverse, err := arg[bool](args, 3)
		if err != nil {
			return nil, err
		}
		pls, err := c.playlistPage(PlaylistQuery{
			Index:    index,
			MaxCount: count,
			Order:    PlaylistOrdering(order),
			Reverse:  reverse,
		})
		if err != nil {
			return nil, err
		}
		if pls == nil {
			pls = []Playlist{}
		}
		return []any{pls}, nil
	}
	return nil, unknownMethod(InterfacePlaylists, method)
}

func (c *core) Get(iface, property string) (dbus.Variant, error) {
	props, err := c.GetAll(iface)
	if err != nil {
		return dbus.Variant{}, err
	}
	v, ok := props[property]
	if !ok {
		return dbus.Variant{}, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, iface, property)
	}
	return v, nil
}

func (c *core) GetAll(iface string) (map[string]dbus.Variant, error) {
	if !c.hasInterface(iface) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInterface, iface)
	}
	defer c.lock()()
	if c.closed {
		return nil, ErrClosed
	}
	return c.propertiesLocked(iface), nil
}

// Set handles a remote property write. Writable properties are relayed to
// the handler as intents; the stored value only changes once the handler
// commits it.
func (c *core) Set(iface, property string, value dbus.Variant) error {
	props, err := c.GetAll(iface)
	if err != nil {
		return err
	}
	if _, ok := props[property]; !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, iface, property)
	}

	switch iface + "." + property {
	case InterfaceMediaPlayer2 + ".Fullscreen":
		v, err := variantValue[bool](value)
		if err != nil {
			return err
		}
		return c.relay(SetFullscreenIntent{Fullscreen: v}, true)
	case InterfacePlayer + ".LoopStatus":
		v, err := variantValue[string](value)
		if err != nil {
			return err
		}
		status, err := ParseLoopStatus(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
		return c.relay(SetLoopStatusIntent{LoopStatus: status}, true)
	case InterfacePlayer + ".Rate":
		v, err := variantValue[float64](value)
		if err != nil {
			return err
		}
		if v == 0 {
			return c.relay(PauseIntent{}, true)
		}
		return c.relay(SetRateIntent{Rate: v}, true)
	case InterfacePlayer + ".Shuffle":
		v, err := variantValue[bool](value)
		if err != nil {
			return err
		}
		return c.relay(SetShuffleIntent{Shuffle: v}, true)
	case InterfacePlayer + ".Volume":
		v, err := variantValue[float64](value)
		if err != nil {
			return err
		}
		return c.relay(SetVolumeIntent{Volume: max(v, 0)}, true)
	}
	return fmt.Errorf("%w: %s.%s", ErrPropertyReadOnly, iface, property)
}

func (c *core) propertiesLocked(iface string) map[string]dbus.Variant {
	switch iface {
	case InterfaceMediaPlayer2:
		b := &c.base
		props := map[string]dbus.Variant{
			"CanQuit":             dbus.MakeVariant(b.canQuit),
			"Fullscreen":          dbus.MakeVariant(b.fullscreen),
			"CanSetFullscreen":    dbus.MakeVariant(b.canSetFullscreen),
			"CanRaise":            dbus.MakeVariant(b.canRaise),
			"HasTrackList":        dbus.MakeVariant(c.variant.HasTrackList()),
			"Identity":            dbus.MakeVariant(b.identity),
			"SupportedUriSchemes": dbus.MakeVariant(nonNil(b.uriSchemes)),
			"SupportedMimeTypes":  dbus.MakeVariant(nonNil(b.mimeTypes)),
		}
		if b.desktopEntry != "" {
			props["DesktopEntry"] = dbus.MakeVariant(b.desktopEntry)
		}
		return props
	case InterfacePlayer:
		p := &c.player
		ctl := p.canControl
		return map[string]dbus.Variant{
			"PlaybackStatus": dbus.MakeVariant(p.status.String()),
			"LoopStatus":     dbus.MakeVariant(p.loop.String()),
			"Rate":           dbus.MakeVariant(p.rate),
			"Shuffle":        dbus.MakeVariant(p.shuffle),
			"Metadata":       dbus.MakeVariant(p.metadata.Variants()),
			"Volume":         dbus.MakeVariant(p.volume),
			"Position":       dbus.MakeVariant(p.position.Microseconds()),
			"MinimumRate":    dbus.MakeVariant(p.minRate),
			"MaximumRate":    dbus.MakeVariant(p.maxRate),
			"CanGoNext":      dbus.MakeVariant(ctl && p.caps.CanGoNext),
			"CanGoPrevious":  dbus.MakeVariant(ctl && p.caps.CanGoPrevious),
			"CanPlay":        dbus.MakeVariant(ctl && p.caps.CanPlay),
			"CanPause":       dbus.MakeVariant(ctl && p.caps.CanPause),
			"CanSeek":        dbus.MakeVariant(ctl && p.caps.CanSeek),
			"CanControl":     dbus.MakeVariant(ctl),
		}
	case InterfaceTrackList:
		return map[string]dbus.Variant{
			"Tracks":        dbus.MakeVariant(nonNil(c.trackList.tracks)),
			"CanEditTracks": dbus.MakeVariant(c.trackList.canEditTracks),
		}
	case InterfacePlaylists:
		orderings := make([]string, 0, len(c.playlists.orderings))
		for _, o := range c.playlists.orderings {
			orderings = append(orderings, o.String())
		}
		return map[string]dbus.Variant{
			"PlaylistCount":  dbus.MakeVariant(c.playlists.count),
			"Orderings":      dbus.MakeVariant(orderings),
			"ActivePlaylist": dbus.MakeVariant(c.playlists.active),
		}
	}
	return nil
}

// Properties returns a copy of every property of the published interfaces,
// keyed by interface name
func (p *Player) Properties() map[string]map[string]dbus.Variant {
	defer p.c.lock()()
	out := make(map[string]map[string]dbus.Variant)
	for _, iface := range p.c.variant.Interfaces() {
		out[iface] = p.c.propertiesLocked(iface)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

func wantArgs(args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: got %d arguments, want %d", ErrInvalidArgs, len(args), n)
	}
	return nil
}

func arg[T any](args []any, i int) (T, error) {
	v, ok := args[i].(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: argument %d is %T, want %T", ErrInvalidArgs, i, args[i], zero)
	}
	return v, nil
}

func variantValue[T any](v dbus.Variant) (T, error) {
	out, ok := v.Value().(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: value is %s, want %T", ErrInvalidArgs, v.Signature(), zero)
	}
	return out, nil
}

func unknownMethod(iface, method string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownMethod, iface, method)
}
