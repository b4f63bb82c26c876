package dbustransport

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"nowserving/mpris"
)

func argIn(name, typ string) introspect.Arg  { return introspect.Arg{Name: name, Type: typ, Direction: "in"} }
func argOut(name, typ string) introspect.Arg { return introspect.Arg{Name: name, Type: typ, Direction: "out"} }

func ro(name, typ string) introspect.Property {
	return introspect.Property{Name: name, Type: typ, Access: "read"}
}

func rw(name, typ string) introspect.Property {
	return introspect.Property{Name: name, Type: typ, Access: "readwrite"}
}

func method(name string, args ...introspect.Arg) introspect.Method {
	return introspect.Method{Name: name, Args: args}
}

func signal(name string, args ...introspect.Arg) introspect.Signal {
	return introspect.Signal{Name: name, Args: args}
}

var interfaceData = map[string]introspect.Interface{
	mpris.InterfaceMediaPlayer2: {
		Name:    mpris.InterfaceMediaPlayer2,
		Methods: []introspect.Method{method("Raise"), method("Quit")},
		Properties: []introspect.Property{
			ro("CanQuit", "b"),
			rw("Fullscreen", "b"),
			ro("CanSetFullscreen", "b"),
			ro("CanRaise", "b"),
			ro("HasTrackList", "b"),
			ro("Identity", "s"),
			ro("DesktopEntry", "s"),
			ro("SupportedUriSchemes", "as"),
			ro("SupportedMimeTypes", "as"),
		},
	},
	mpris.InterfacePlayer: {
		Name: mpris.InterfacePlayer,
		Methods: []introspect.Method{
			method("Next"),
			method("Previous"),
			method("Pause"),
			method("PlayPause"),
			method("Stop"),
			method("Play"),
			method("Seek", argIn("Offset", "x")),
			method("SetPosition", argIn("TrackId", "o"), argIn("Position", "x")),
			method("OpenUri", argIn("Uri", "s")),
		},
		Signals: []introspect.Signal{signal("Seeked", argOut("Position", "x"))},
		Properties: []introspect.Property{
			ro("PlaybackStatus", "s"),
			rw("LoopStatus", "s"),
			rw("Rate", "d"),
			rw("Shuffle", "b"),
			ro("Metadata", "a{sv}"),
			rw("Volume", "d"),
			ro("Position", "x"),
			ro("MinimumRate", "d"),
			ro("MaximumRate", "d"),
			ro("CanGoNext", "b"),
			ro("CanGoPrevious", "b"),
			ro("CanPlay", "b"),
			ro("CanPause", "b"),
			ro("CanSeek", "b"),
			ro("CanControl", "b"),
		},
	},
	mpris.InterfaceTrackList: {
		Name: mpris.InterfaceTrackList,
		Methods: []introspect.Method{
			method("GetTracksMetadata", argIn("TrackIds", "ao"), argOut("Metadata", "aa{sv}")),
			method("AddTrack", argIn("Uri", "s"), argIn("AfterTrack", "o"), argIn("SetAsCurrent", "b")),
			method("RemoveTrack", argIn("TrackId", "o")),
			method("GoTo", argIn("TrackId", "o")),
		},
		Signals: []introspect.Signal{
			signal("TrackListReplaced", argOut("Tracks", "ao"), argOut("CurrentTrack", "o")),
			signal("TrackAdded", argOut("Metadata", "a{sv}"), argOut("AfterTrack", "o")),
			signal("TrackRemoved", argOut("TrackId", "o")),
			signal("TrackMetadataChanged", argOut("TrackId", "o"), argOut("Metadata", "a{sv}")),
		},
		Properties: []introspect.Property{
			ro("Tracks", "ao"),
			ro("CanEditTracks", "b"),
		},
	},
	mpris.InterfacePlaylists: {
		Name: mpris.InterfacePlaylists,
		Methods: []introspect.Method{
			method("ActivatePlaylist", argIn("PlaylistId", "o")),
			method("GetPlaylists",
				argIn("Index", "u"), argIn("MaxCount", "u"), argIn("Order", "s"), argIn("ReverseOrder", "b"),
				argOut("Playlists", "a(oss)")),
		},
		Signals: []introspect.Signal{signal("PlaylistChanged", argOut("Playlist", "(oss)"))},
		Properties: []introspect.Property{
			ro("PlaylistCount", "u"),
			ro("Orderings", "as"),
			ro("ActivePlaylist", "(b(oss))"),
		},
	},
}

// introspectNode describes the object at path with exactly the given MPRIS
// interfaces plus the standard ones
func introspectNode(path dbus.ObjectPath, ifaces []string) (*introspect.Node, error) {
	node := &introspect.Node{
		Name:       string(path),
		Interfaces: []introspect.Interface{introspect.IntrospectData, prop.IntrospectData},
	}
	for _, iface := range ifaces {
		data, ok := interfaceData[iface]
		if !ok {
			return nil, fmt.Errorf("dbustransport: no introspection data for %s", iface)
		}
		node.Interfaces = append(node.Interfaces, data)
	}
	return node, nil
}
