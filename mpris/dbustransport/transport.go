// Package dbustransport publishes mpris players on a real D-Bus connection
// using godbus.
package dbustransport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"nowserving/mpris"
)

const (
	propertiesInterface   = "org.freedesktop.DBus.Properties"
	introspectInterface   = "org.freedesktop.DBus.Introspectable"
	propertiesChangedName = propertiesInterface + ".PropertiesChanged"
)

var (
	// ErrNameTaken is returned by Publish when another process owns the bus name
	ErrNameTaken = errors.New("dbustransport: bus name already owned")
	// ErrPathInUse is returned by Publish when this connection already
	// serves an object at the path
	ErrPathInUse = errors.New("dbustransport: object path already published on this connection")
)

// Transport implements mpris.Transport over a godbus connection
type Transport struct {
	conn *dbus.Conn

	mu    sync.Mutex
	paths map[dbus.ObjectPath]bool
}

// New wraps an already connected bus
func New(conn *dbus.Conn) *Transport {
	return &Transport{conn: conn}
}

// ConnectSession opens a private connection to the session bus
func ConnectSession() (*Transport, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return New(conn), nil
}

// claim reserves path for one object until release
func (t *Transport) claim(path dbus.ObjectPath) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.paths[path] {
		return fmt.Errorf("%w: %s", ErrPathInUse, path)
	}
	if t.paths == nil {
		t.paths = make(map[dbus.ObjectPath]bool)
	}
	t.paths[path] = true
	return nil
}

func (t *Transport) release(path dbus.ObjectPath) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.paths, path)
}

func (t *Transport) Conn() *dbus.Conn {
	return t.conn
}

// Close closes the underlying connection
func (t *Transport) Close() error {
	return t.conn.Close()
}

// Publish exports every interface of obj plus Properties and Introspectable,
// then requests busName. Observers discover players by name, so nothing is
// visible until the name is owned; on failure every export is withdrawn.
// A connection serves one object per path, so a second Publish at a busy
// path fails before touching the first object's exports.
func (t *Transport) Publish(busName string, path dbus.ObjectPath, obj mpris.Object) (mpris.Handle, error) {
	if err := t.claim(path); err != nil {
		return nil, err
	}
	var exported []string
	rollback := func() {
		for _, iface := range exported {
			_ = t.conn.Export(nil, path, iface)
		}
		t.release(path)
	}

	for _, iface := range obj.Interfaces() {
		table, err := methodTable(obj, iface)
		if err != nil {
			rollback()
			return nil, err
		}
		if err := t.conn.ExportMethodTable(table, path, iface); err != nil {
			rollback()
			return nil, fmt.Errorf("export %s: %w", iface, err)
		}
		exported = append(exported, iface)
	}

	if err := t.conn.ExportMethodTable(propertiesTable(obj), path, propertiesInterface); err != nil {
		rollback()
		return nil, fmt.Errorf("export %s: %w", propertiesInterface, err)
	}
	exported = append(exported, propertiesInterface)

	node, err := introspectNode(path, obj.Interfaces())
	if err != nil {
		rollback()
		return nil, err
	}
	if err := t.conn.Export(introspect.NewIntrospectable(node), path, introspectInterface); err != nil {
		rollback()
		return nil, fmt.Errorf("export %s: %w", introspectInterface, err)
	}
	exported = append(exported, introspectInterface)

	reply, err := t.conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("request name %s: %w", busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		rollback()
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, busName)
	}

	return &handle{t: t, busName: busName, path: path, ifaces: exported}, nil
}

type handle struct {
	t       *Transport
	busName string
	path    dbus.ObjectPath
	ifaces  []string

	once sync.Once
	err  error
}

func (h *handle) Unpublish() error {
	h.once.Do(func() {
		if _, err := h.t.conn.ReleaseName(h.busName); err != nil {
			h.err = fmt.Errorf("release name %s: %w", h.busName, err)
		}
		for _, iface := range h.ifaces {
			if err := h.t.conn.Export(nil, h.path, iface); err != nil && h.err == nil {
				h.err = fmt.Errorf("unexport %s: %w", iface, err)
			}
		}
		h.t.release(h.path)
	})
	return h.err
}

func (t *Transport) EmitSignal(path dbus.ObjectPath, iface, name string, args ...any) error {
	return t.conn.Emit(path, iface+"."+name, args...)
}

func (t *Transport) EmitPropertiesChanged(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant, invalidated []string) error {
	if changed == nil {
		changed = map[string]dbus.Variant{}
	}
	if invalidated == nil {
		invalidated = []string{}
	}
	return t.conn.Emit(path, propertiesChangedName, iface, changed, invalidated)
}
