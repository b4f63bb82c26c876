package mpris

import "github.com/godbus/dbus/v5"

// Transport is the bus the player is published on. It is always passed in
// explicitly; the package never opens a connection of its own.
type Transport interface {
	// Publish makes obj reachable under busName at path. Either every
	// interface of obj becomes visible or none does.
	Publish(busName string, path dbus.ObjectPath, obj Object) (Handle, error)

	EmitSignal(path dbus.ObjectPath, iface, name string, args ...any) error

	EmitPropertiesChanged(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant, invalidated []string) error
}

// Handle withdraws a published object
type Handle interface {
	Unpublish() error
}

// Object is the inbound side of a published player, as seen by a Transport.
// Call arguments and results use godbus Go types (dbus.ObjectPath, int64,
// map[string]dbus.Variant and so on).
type Object interface {
	Interfaces() []string
	Call(iface, method string, args []any) ([]any, error)
	Get(iface, property string) (dbus.Variant, error)
	GetAll(iface string) (map[string]dbus.Variant, error)
	Set(iface, property string, value dbus.Variant) error
}
