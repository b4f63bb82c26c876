package dbustransport

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"nowserving/mpris"
)

// methodTable builds the godbus method table for one MPRIS interface.
// Each entry converts its typed arguments and forwards to obj.Call.
func methodTable(obj mpris.Object, iface string) (map[string]any, error) {
	call := func(method string, args ...any) ([]any, *dbus.Error) {
		out, err := obj.Call(iface, method, args)
		return out, toDBusError(err)
	}
	noArgs := func(method string) func() *dbus.Error {
		return func() *dbus.Error {
			_, err := call(method)
			return err
		}
	}

	switch iface {
	case mpris.InterfaceMediaPlayer2:
		return map[string]any{
			"Raise": noArgs("Raise"),
			"Quit":  noArgs("Quit"),
		}, nil
	case mpris.InterfacePlayer:
		return map[string]any{
			"Next":      noArgs("Next"),
			"Previous":  noArgs("Previous"),
			"Pause":     noArgs("Pause"),
			"PlayPause": noArgs("PlayPause"),
			"Stop":      noArgs("Stop"),
			"Play":      noArgs("Play"),
			"Seek": func(offset int64) *dbus.Error {
				_, err := call("Seek", offset)
				return err
			},
			"SetPosition": func(id dbus.ObjectPath, pos int64) *dbus.Error {
				_, err := call("SetPosition", id, pos)
				return err
			},
			"OpenUri": func(uri string) *dbus.Error {
				_, err := call("OpenUri", uri)
				return err
			},
		}, nil
	case mpris.InterfaceTrackList:
		return map[string]any{
			"GetTracksMetadata": func(ids []dbus.ObjectPath) ([]map[string]dbus.Variant, *dbus.Error) {
				return result[[]map[string]dbus.Variant](call("GetTracksMetadata", ids))
			},
			"AddTrack": func(uri string, after dbus.ObjectPath, setAsCurrent bool) *dbus.Error {
				_, err := call("AddTrack", uri, after, setAsCurrent)
				return err
			},
			"RemoveTrack": func(id dbus.ObjectPath) *dbus.Error {
				_, err := call("RemoveTrack", id)
				return err
			},
			"GoTo": func(id dbus.ObjectPath) *dbus.Error {
				_, err := call("GoTo", id)
				return err
			},
		}, nil
	case mpris.InterfacePlaylists:
		return map[string]any{
			"ActivatePlaylist": func(id dbus.ObjectPath) *dbus.Error {
				_, err := call("ActivatePlaylist", id)
				return err
			},
			"GetPlaylists": func(index, maxCount uint32, order string, reverse bool) ([]mpris.Playlist, *dbus.Error) {
				return result[[]mpris.Playlist](call("GetPlaylists", index, maxCount, order, reverse))
			},
		}, nil
	}
	return nil, fmt.Errorf("dbustransport: no method table for %s", iface)
}

// propertiesTable implements org.freedesktop.DBus.Properties on top of obj
func propertiesTable(obj mpris.Object) map[string]any {
	return map[string]any{
		"Get": func(iface, property string) (dbus.Variant, *dbus.Error) {
			v, err := obj.Get(iface, property)
			return v, toDBusError(err)
		},
		"GetAll": func(iface string) (map[string]dbus.Variant, *dbus.Error) {
			props, err := obj.GetAll(iface)
			return props, toDBusError(err)
		},
		"Set": func(iface, property string, value dbus.Variant) *dbus.Error {
			return toDBusError(obj.Set(iface, property, value))
		},
	}
}

func result[T any](out []any, derr *dbus.Error) (T, *dbus.Error) {
	var zero T
	if derr != nil {
		return zero, derr
	}
	if len(out) != 1 {
		return zero, dbus.MakeFailedError(fmt.Errorf("expected one result, got %d", len(out)))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, dbus.MakeFailedError(fmt.Errorf("result is %T, want %T", out[0], zero))
	}
	return v, nil
}

// toDBusError maps library errors onto the standard D-Bus error names
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	var verr *mpris.ValidationError
	name := "org.freedesktop.DBus.Error.Failed"
	switch {
	case errors.Is(err, mpris.ErrUnknownInterface):
		name = "org.freedesktop.DBus.Error.UnknownInterface"
	case errors.Is(err, mpris.ErrUnknownMethod):
		name = "org.freedesktop.DBus.Error.UnknownMethod"
	case errors.Is(err, mpris.ErrUnknownProperty):
		name = "org.freedesktop.DBus.Error.UnknownProperty"
	case errors.Is(err, mpris.ErrPropertyReadOnly):
		name = "org.freedesktop.DBus.Error.PropertyReadOnly"
	case errors.Is(err, mpris.ErrInvalidArgs), errors.As(err, &verr):
		name = "org.freedesktop.DBus.Error.InvalidArgs"
	}
	return dbus.NewError(name, []any{err.Error()})
}
