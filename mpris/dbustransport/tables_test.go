package dbustransport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/godbus/dbus/v5"

	"nowserving/mpris"
)

type recordedCall struct {
	iface, method string
	args          []any
}

// fakeObject records calls and answers with canned results
type fakeObject struct {
	ifaces []string
	calls  []recordedCall
	result []any
	err    error
}

func (f *fakeObject) Interfaces() []string { return f.ifaces }

func (f *fakeObject) Call(iface, method string, args []any) ([]any, error) {
	f.calls = append(f.calls, recordedCall{iface, method, args})
	return f.result, f.err
}

func (f *fakeObject) Get(iface, property string) (dbus.Variant, error) {
	return dbus.MakeVariant(iface + "." + property), f.err
}

func (f *fakeObject) GetAll(iface string) (map[string]dbus.Variant, error) {
	return map[string]dbus.Variant{"Iface": dbus.MakeVariant(iface)}, f.err
}

func (f *fakeObject) Set(iface, property string, value dbus.Variant) error {
	f.calls = append(f.calls, recordedCall{iface, "Set:" + property, []any{value.Value()}})
	return f.err
}

func TestMethodTableKeys(t *testing.T) {
	tests := []struct {
		iface   string
		methods []string
	}{
		{mpris.InterfaceMediaPlayer2, []string{"Raise", "Quit"}},
		{mpris.InterfacePlayer, []string{"Next", "Previous", "Pause", "PlayPause", "Stop", "Play", "Seek", "SetPosition", "OpenUri"}},
		{mpris.InterfaceTrackList, []string{"GetTracksMetadata", "AddTrack", "RemoveTrack", "GoTo"}},
		{mpris.InterfacePlaylists, []string{"ActivatePlaylist", "GetPlaylists"}},
	}

	for _, tt := range tests {
		t.Run(tt.iface, func(t *testing.T) {
			table, err := methodTable(&fakeObject{}, tt.iface)
			if err != nil {
				t.Fatalf("methodTable() error = %v", err)
			}
			if len(table) != len(tt.methods) {
				t.Errorf("table has %d methods, want %d", len(table), len(tt.methods))
			}
			for _, m := range tt.methods {
				if _, ok := table[m]; !ok {
					t.Errorf("method %s missing", m)
				}
			}
		})
	}

	if _, err := methodTable(&fakeObject{}, "org.example.Nope"); err == nil {
		t.Error("expected error for unknown interface")
	}
}

func TestMethodTableForwardsTypedArgs(t *testing.T) {
	obj := &fakeObject{}
	table, err := methodTable(obj, mpris.InterfacePlayer)
	if err != nil {
		t.Fatal(err)
	}

	seek := table["Seek"].(func(int64) *dbus.Error)
	if derr := seek(5_000_000); derr != nil {
		t.Fatalf("Seek returned %v", derr)
	}
	setPos := table["SetPosition"].(func(dbus.ObjectPath, int64) *dbus.Error)
	if derr := setPos("/t/1", 42); derr != nil {
		t.Fatalf("SetPosition returned %v", derr)
	}

	if len(obj.calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(obj.calls))
	}
	if c := obj.calls[0]; c.method != "Seek" || c.args[0] != int64(5_000_000) {
		t.Errorf("first call = %+v", c)
	}
	if c := obj.calls[1]; c.method != "SetPosition" || c.args[0] != dbus.ObjectPath("/t/1") || c.args[1] != int64(42) {
		t.Errorf("second call = %+v", c)
	}
}

func TestMethodTableResults(t *testing.T) {
	want := []mpris.Playlist{{ID: "/p/1", Name: "Mix"}}
	obj := &fakeObject{result: []any{want}}
	table, err := methodTable(obj, mpris.InterfacePlaylists)
	if err != nil {
		t.Fatal(err)
	}

	get := table["GetPlaylists"].(func(uint32, uint32, string, bool) ([]mpris.Playlist, *dbus.Error))
	got, derr := get(0, 10, "User", false)
	if derr != nil {
		t.Fatalf("GetPlaylists returned %v", derr)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("GetPlaylists = %v, want %v", got, want)
	}

	obj.result = []any{"wrong type"}
	if _, derr := get(0, 10, "User", false); derr == nil || derr.Name != "org.freedesktop.DBus.Error.Failed" {
		t.Errorf("expected Failed for a mistyped result, got %v", derr)
	}
}

func TestToDBusError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unknown interface", fmt.Errorf("%w: x", mpris.ErrUnknownInterface), "org.freedesktop.DBus.Error.UnknownInterface"},
		{"unknown method", fmt.Errorf("%w: x", mpris.ErrUnknownMethod), "org.freedesktop.DBus.Error.UnknownMethod"},
		{"unknown property", fmt.Errorf("%w: x", mpris.ErrUnknownProperty), "org.freedesktop.DBus.Error.UnknownProperty"},
		{"read only", fmt.Errorf("%w: x", mpris.ErrPropertyReadOnly), "org.freedesktop.DBus.Error.PropertyReadOnly"},
		{"invalid args", fmt.Errorf("%w: x", mpris.ErrInvalidArgs), "org.freedesktop.DBus.Error.InvalidArgs"},
		{"validation", &mpris.ValidationError{Field: "Order", Reason: "nope"}, "org.freedesktop.DBus.Error.InvalidArgs"},
		{"handler failure", errors.New("disk on fire"), "org.freedesktop.DBus.Error.Failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			derr := toDBusError(tt.err)
			if derr == nil {
				t.Fatal("toDBusError() = nil")
			}
			if derr.Name != tt.want {
				t.Errorf("Name = %s, want %s", derr.Name, tt.want)
			}
			if len(derr.Body) != 1 || derr.Body[0] != tt.err.Error() {
				t.Errorf("Body = %v, want [%q]", derr.Body, tt.err.Error())
			}
		})
	}

	if toDBusError(nil) != nil {
		t.Error("toDBusError(nil) should be nil")
	}
}

func TestPropertiesTable(t *testing.T) {
	obj := &fakeObject{}
	table := propertiesTable(obj)

	get := table["Get"].(func(string, string) (dbus.Variant, *dbus.Error))
	v, derr := get(mpris.InterfacePlayer, "Rate")
	if derr != nil {
		t.Fatal(derr)
	}
	if v.Value() != mpris.InterfacePlayer+".Rate" {
		t.Errorf("Get = %v", v)
	}

	set := table["Set"].(func(string, string, dbus.Variant) *dbus.Error)
	obj.err = mpris.ErrPropertyReadOnly
	if derr := set(mpris.InterfacePlayer, "Metadata", dbus.MakeVariant(1)); derr == nil || derr.Name != "org.freedesktop.DBus.Error.PropertyReadOnly" {
		t.Errorf("Set error = %v", derr)
	}
}

func TestIntrospectNode(t *testing.T) {
	node, err := introspectNode(mpris.ObjectPath, mpris.VariantTrackList.Interfaces())
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, iface := range node.Interfaces {
		names = append(names, iface.Name)
	}
	want := []string{
		"org.freedesktop.DBus.Introspectable",
		"org.freedesktop.DBus.Properties",
		mpris.InterfaceMediaPlayer2,
		mpris.InterfacePlayer,
		mpris.InterfaceTrackList,
	}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("interfaces = %v, want %v", names, want)
	}

	for _, iface := range node.Interfaces[2:] {
		if iface.Name == mpris.InterfacePlaylists {
			t.Error("Playlists must not be described for a TrackList player")
		}
	}
}

func TestPublishRefusesBusyPath(t *testing.T) {
	tr := New(nil)
	path := dbus.ObjectPath("/org/mpris/MediaPlayer2")
	if err := tr.claim(path); err != nil {
		t.Fatalf("claim() error = %v", err)
	}

	// Fails before any export, so the nil connection is never used
	_, err := tr.Publish("org.mpris.MediaPlayer2.second", path, &fakeObject{ifaces: []string{mpris.InterfaceMediaPlayer2}})
	if !errors.Is(err, ErrPathInUse) {
		t.Fatalf("Publish() error = %v, want ErrPathInUse", err)
	}

	tr.release(path)
	if err := tr.claim(path); err != nil {
		t.Errorf("claim() after release error = %v", err)
	}
	if err := tr.claim("/org/example/Other"); err != nil {
		t.Errorf("claim() of another path error = %v", err)
	}
}
