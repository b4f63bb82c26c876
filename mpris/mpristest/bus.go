// Package mpristest provides an in-memory Transport that records every
// emission, for tests of code built on package mpris.
package mpristest

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/godbus/dbus/v5"

	"nowserving/mpris"
)

var (
	ErrNameTaken  = errors.New("mpristest: name already owned")
	ErrNoSuchName = errors.New("mpristest: no object under that name")
)

// EventKind tells signals and property notifications apart
type EventKind int

const (
	Signal EventKind = iota
	PropertiesChanged
)

// Event is one recorded emission
type Event struct {
	Kind      EventKind
	Path      dbus.ObjectPath
	Interface string
	// Name is the signal name; "PropertiesChanged" for property notifications
	Name        string
	Args        []any
	Changed     map[string]dbus.Variant
	Invalidated []string
}

type published struct {
	path dbus.ObjectPath
	obj  mpris.Object
}

// Bus is a fake bus. The zero value is not usable; call New.
type Bus struct {
	mu          sync.Mutex
	objects     map[string]published
	events      []Event
	onEmit      func(Event)
	failPublish error
}

func New() *Bus {
	return &Bus{objects: make(map[string]published)}
}

// FailPublish makes every following Publish fail with err; nil restores normal behaviour
func (b *Bus) FailPublish(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPublish = err
}

// OnEmit installs a hook called after each emission is recorded. The hook
// runs on the emitting goroutine without the bus lock held.
func (b *Bus) OnEmit(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEmit = fn
}

func (b *Bus) Publish(busName string, path dbus.ObjectPath, obj mpris.Object) (mpris.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPublish != nil {
		return nil, b.failPublish
	}
	if _, taken := b.objects[busName]; taken {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, busName)
	}
	b.objects[busName] = published{path: path, obj: obj}
	return &handle{bus: b, name: busName}, nil
}

type handle struct {
	bus  *Bus
	name string
	once sync.Once
}

func (h *handle) Unpublish() error {
	h.once.Do(func() {
		h.bus.mu.Lock()
		delete(h.bus.objects, h.name)
		h.bus.mu.Unlock()
	})
	return nil
}

func (b *Bus) EmitSignal(path dbus.ObjectPath, iface, name string, args ...any) error {
	b.record(Event{Kind: Signal, Path: path, Interface: iface, Name: name, Args: slices.Clone(args)})
	return nil
}

func (b *Bus) EmitPropertiesChanged(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant, invalidated []string) error {
	cp := make(map[string]dbus.Variant, len(changed))
	for k, v := range changed {
		cp[k] = v
	}
	b.record(Event{
		Kind:        PropertiesChanged,
		Path:        path,
		Interface:   iface,
		Name:        "PropertiesChanged",
		Changed:     cp,
		Invalidated: slices.Clone(invalidated),
	})
	return nil
}

func (b *Bus) record(e Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	hook := b.onEmit
	b.mu.Unlock()
	if hook != nil {
		hook(e)
	}
}

// Names lists the owned bus names in sorted order
func (b *Bus) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.objects))
	for n := range b.objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the object published under busName
func (b *Bus) Lookup(busName string) (mpris.Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.objects[busName]
	return p.obj, ok
}

// Events returns a copy of everything emitted so far, oldest first
func (b *Bus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.events)
}

// Reset forgets the recorded events
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// Changes returns the values announced for one property, in order
func (b *Bus) Changes(iface, property string) []dbus.Variant {
	var out []dbus.Variant
	for _, e := range b.Events() {
		if e.Kind != PropertiesChanged || e.Interface != iface {
			continue
		}
		if v, ok := e.Changed[property]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Signals returns the recorded signals with the given interface and name
func (b *Bus) Signals(iface, name string) []Event {
	var out []Event
	for _, e := range b.Events() {
		if e.Kind == Signal && e.Interface == iface && e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (b *Bus) object(busName string) (mpris.Object, error) {
	obj, ok := b.Lookup(busName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchName, busName)
	}
	return obj, nil
}

// Call invokes a method the way a remote controller would
func (b *Bus) Call(busName, iface, method string, args ...any) ([]any, error) {
	obj, err := b.object(busName)
	if err != nil {
		return nil, err
	}
	return obj.Call(iface, method, args)
}

// Get reads a property the way a remote controller would
func (b *Bus) Get(busName, iface, property string) (dbus.Variant, error) {
	obj, err := b.object(busName)
	if err != nil {
		return dbus.Variant{}, err
	}
	return obj.Get(iface, property)
}

// Set writes a property the way a remote controller would
func (b *Bus) Set(busName, iface, property string, value any) error {
	obj, err := b.object(busName)
	if err != nil {
		return err
	}
	return obj.Set(iface, property, dbus.MakeVariant(value))
}
