package mpris

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

// Intent is a control request from a local caller or a remote controller.
// The set of intents is closed; switch over the concrete types below.
type Intent interface {
	isIntent()
}

type (
	RaiseIntent         struct{}
	QuitIntent          struct{}
	SetFullscreenIntent struct{ Fullscreen bool }

	NextIntent      struct{}
	PreviousIntent  struct{}
	PlayIntent      struct{}
	PauseIntent     struct{}
	PlayPauseIntent struct{}
	StopIntent      struct{}
	SeekIntent      struct{ Offset time.Duration }
	OpenURIIntent   struct{ URI string }

	SetPositionIntent struct {
		TrackID  dbus.ObjectPath
		Position time.Duration
	}

	SetLoopStatusIntent struct{ LoopStatus LoopStatus }
	SetRateIntent       struct{ Rate float64 }
	SetShuffleIntent    struct{ Shuffle bool }
	SetVolumeIntent     struct{ Volume float64 }

	AddTrackIntent struct {
		URI          string
		After        dbus.ObjectPath
		SetAsCurrent bool
	}
	RemoveTrackIntent struct{ TrackID dbus.ObjectPath }
	GoToIntent        struct{ TrackID dbus.ObjectPath }

	ActivatePlaylistIntent struct{ PlaylistID dbus.ObjectPath }
)

func (RaiseIntent) isIntent()            {}
func (QuitIntent) isIntent()             {}
func (SetFullscreenIntent) isIntent()    {}
func (NextIntent) isIntent()             {}
func (PreviousIntent) isIntent()         {}
func (PlayIntent) isIntent()             {}
func (PauseIntent) isIntent()            {}
func (PlayPauseIntent) isIntent()        {}
func (StopIntent) isIntent()             {}
func (SeekIntent) isIntent()             {}
func (OpenURIIntent) isIntent()          {}
func (SetPositionIntent) isIntent()      {}
func (SetLoopStatusIntent) isIntent()    {}
func (SetRateIntent) isIntent()          {}
func (SetShuffleIntent) isIntent()       {}
func (SetVolumeIntent) isIntent()        {}
func (AddTrackIntent) isIntent()         {}
func (RemoveTrackIntent) isIntent()      {}
func (GoToIntent) isIntent()             {}
func (ActivatePlaylistIntent) isIntent() {}

// Dispatcher receives intents. An error is reported back to the caller of
// the control, which for remote callers means a failed reply.
type Dispatcher interface {
	Dispatch(in Intent) error
}

// DispatcherFunc adapts a function to the Dispatcher interface
type DispatcherFunc func(in Intent) error

func (f DispatcherFunc) Dispatch(in Intent) error {
	return f(in)
}

// slots routes intents to the callbacks of the configuration sets.
// A nil callback makes its intent a no-op.
type slots struct {
	base      BaseConfig
	player    PlayerConfig
	trackList TrackListConfig
	playlists PlaylistsConfig
}

func (s *slots) Dispatch(in Intent) error {
	switch in := in.(type) {
	case RaiseIntent:
		return call0(s.base.OnRaise)
	case QuitIntent:
		return call0(s.base.OnQuit)
	case SetFullscreenIntent:
		return call1(s.base.OnFullscreen, in.Fullscreen)
	case NextIntent:
		return call0(s.player.OnNext)
	case PreviousIntent:
		return call0(s.player.OnPrevious)
	case PlayIntent:
		return call0(s.player.OnPlay)
	case PauseIntent:
		return call0(s.player.OnPause)
	case PlayPauseIntent:
		return call0(s.player.OnPlayPause)
	case StopIntent:
		return call0(s.player.OnStop)
	case SeekIntent:
		return call1(s.player.OnSeek, in.Offset)
	case SetPositionIntent:
		if s.player.OnSetPosition == nil {
			return nil
		}
		return s.player.OnSetPosition(in.TrackID, in.Position)
	case OpenURIIntent:
		return call1(s.player.OnOpenURI, in.URI)
	case SetLoopStatusIntent:
		return call1(s.player.OnLoopStatus, in.LoopStatus)
	case SetRateIntent:
		return call1(s.player.OnRate, in.Rate)
	case SetShuffleIntent:
		return call1(s.player.OnShuffle, in.Shuffle)
	case SetVolumeIntent:
		return call1(s.player.OnVolume, in.Volume)
	case AddTrackIntent:
		if s.trackList.OnAddTrack == nil {
			return nil
		}
		return s.trackList.OnAddTrack(in.URI, in.After, in.SetAsCurrent)
	case RemoveTrackIntent:
		return call1(s.trackList.OnRemoveTrack, in.TrackID)
	case GoToIntent:
		return call1(s.trackList.OnGoTo, in.TrackID)
	case ActivatePlaylistIntent:
		return call1(s.playlists.OnActivatePlaylist, in.PlaylistID)
	}
	return fmt.Errorf("unhandled intent %T", in)
}

func call0(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}

func call1[T any](fn func(T) error, v T) error {
	if fn == nil {
		return nil
	}
	return fn(v)
}

// dispatchSafely runs d and turns a handler panic into an error
func dispatchSafely(d Dispatcher, in Intent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mpris: handler for %T panicked: %v", in, r)
		}
	}()
	return d.Dispatch(in)
}
