package main

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/afero"

	"nowserving/mpris"
)

const (
	seekStep   = 10 * time.Second
	volumeStep = 0.05
)

// model is the Bubble Tea model for the TUI application. The published
// player's state lives in the mpris façades; the model only keeps what the
// terminal needs on top of it.
type model struct {
	h     *host
	queue *mpris.Queue
	fs    afero.Fs

	color     string
	width     int
	height    int
	lastError error
	lastTick  time.Time

	// Album artwork support
	artworkEncoded string // Kitty protocol-encoded artwork for display
	supportsKitty  bool   // Whether terminal supports Kitty graphics
	lastArtURL     string // Art URL the current artwork was loaded from

	// Text scrolling state
	lastTrackID  dbus.ObjectPath
	scrollOffset int // Current scroll position for text animation
	scrollPause  int // Pause counter at start/end of scroll
	scrollTick   int // Tick counter for slowing scroll speed

	showHelp bool
}

func newModel(h *host, q *mpris.Queue, fs afero.Fs) model {
	cfg := config.Get()
	return model{
		h:             h,
		queue:         q,
		fs:            fs,
		color:         cfg.UI.Color,
		supportsKitty: supportsKittyGraphics(),
		lastTick:      time.Now(),
	}
}

// UI refresh tick; also drives the simulated playback clock
type tickMsg time.Time

// An intent taken off the queue
type intentMsg struct {
	in mpris.Intent
}

// The intent queue was closed
type queueClosedMsg struct{}

// Result of loading and encoding artwork
type artworkMsg struct {
	artURL  string
	encoded string
	color   string
	err     error
}

// Outcome of a key's relay
type relayMsg struct {
	err error
}

// relayCmd runs a relay off the Update goroutine. Dispatch blocks while the
// intent queue is full and only Update drains it.
func relayCmd(relay func() error) tea.Cmd {
	return func() tea.Msg {
		return relayMsg{err: relay()}
	}
}

// Schedule next UI refresh tick
func tickCmd() tea.Cmd {
	cfg := config.Get()
	return tea.Tick(time.Duration(cfg.Timing.UIRefreshMs)*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Wait for the next intent from a controller or a key press
func waitForIntentCmd(q *mpris.Queue) tea.Cmd {
	return func() tea.Msg {
		select {
		case in := <-q.Intents():
			return intentMsg{in: in}
		case <-q.Done():
			return queueClosedMsg{}
		}
	}
}

// Load artwork in background (doesn't block UI)
func fetchArtworkCmd(fs afero.Fs, artURL string) tea.Cmd {
	return func() (msg tea.Msg) {
		cfg := config.Get()
		defer func() {
			if r := recover(); r != nil {
				msg = artworkMsg{artURL: artURL, err: errors.New("artwork processing failed")}
			}
		}()

		data, err := fetchArtwork(fs, artURL)
		if err != nil {
			return artworkMsg{artURL: artURL, err: err}
		}
		color, encoded, err := processArtwork(data, cfg.UI.ColorMode == "auto")
		return artworkMsg{artURL: artURL, encoded: encoded, color: color, err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForIntentCmd(m.queue),
		watchConfigCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case intentMsg:
		err := m.h.handle(msg.in)
		if errors.Is(err, errQuit) {
			return m, tea.Quit
		}
		m.lastError = err
		return m, waitForIntentCmd(m.queue)

	case queueClosedMsg:
		return m, tea.Quit

	case relayMsg:
		m.lastError = msg.err

	case configReloadMsg:
		cfg := config.Get()
		if cfg.UI.ColorMode == "manual" {
			m.color = cfg.UI.Color
		}
		if !cfg.Artwork.Enabled {
			m.artworkEncoded = ""
		} else if m.artworkEncoded == "" {
			// Artwork was just enabled; load it on the next tick
			m.lastArtURL = ""
		}
		return m, watchConfigCmd()

	case tickMsg:
		now := time.Time(msg)
		if err := m.h.advance(now.Sub(m.lastTick)); err != nil {
			m.lastError = err
		}
		m.lastTick = now

		cmd := m.syncTrack()
		m.scroll()
		if cmd != nil {
			return m, tea.Batch(tickCmd(), cmd)
		}
		return m, tickCmd()

	case artworkMsg:
		if msg.artURL != m.lastArtURL {
			return m, nil
		}
		if msg.err != nil {
			m.artworkEncoded = ""
			return m, nil
		}
		m.artworkEncoded = msg.encoded
		if config.Get().UI.ColorMode == "auto" && msg.color != "" {
			m.color = msg.color
		}
		return m, nil
	}

	return m, nil
}

// handleKey maps keys onto the same controls remote players use, so key
// presses obey the capability flags too
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.h.p
	var relay func() error
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "p", " ":
		relay = p.PlayPause
	case "n":
		relay = p.Next
	case "b":
		relay = p.Previous
	case "s":
		relay = p.Stop
	case "left":
		relay = func() error { return p.Seek(-seekStep) }
	case "right":
		relay = func() error { return p.Seek(seekStep) }
	case "l":
		loop := p.LoopStatus().Next()
		relay = func() error { return p.RequestLoopStatus(loop) }
	case "r":
		shuffle := !p.Shuffle()
		relay = func() error { return p.RequestShuffle(shuffle) }
	case "+", "=":
		volume := min(p.Volume()+volumeStep, 1)
		relay = func() error { return p.RequestVolume(volume) }
	case "-":
		volume := max(p.Volume()-volumeStep, 0)
		relay = func() error { return p.RequestVolume(volume) }
	case "a":
		// Toggle artwork on/off
		cfg := config.Get()
		cfg.Artwork.Enabled = !cfg.Artwork.Enabled
		config.Set(cfg)
		if !cfg.Artwork.Enabled {
			m.artworkEncoded = ""
		} else {
			m.lastArtURL = ""
		}
		return m, nil
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	default:
		return m, nil
	}
	return m, relayCmd(relay)
}

// syncTrack resets scrolling on a track change and starts loading artwork
// when the art URL changed
func (m *model) syncTrack() tea.Cmd {
	meta := m.h.p.Metadata()
	if id := meta.TrackID(); id != m.lastTrackID {
		m.lastTrackID = id
		m.scrollOffset = 0
		m.scrollPause = 30 // Pause at start for 3 seconds
		m.scrollTick = 0
	}

	cfg := config.Get()
	artURL := meta.ArtURL()
	if artURL == m.lastArtURL || !m.supportsKitty || !cfg.Artwork.Enabled {
		return nil
	}
	m.lastArtURL = artURL
	m.artworkEncoded = ""
	if artURL == "" {
		return nil
	}
	return fetchArtworkCmd(m.fs, artURL)
}

// scroll advances the text animation slowly
func (m *model) scroll() {
	m.scrollTick++
	if m.scrollPause > 0 {
		m.scrollPause--
		return
	}
	if m.scrollTick%3 != 0 { // Scroll every 3rd tick
		return
	}
	m.scrollOffset++

	meta := m.h.p.Metadata()
	longest := len([]rune(meta.Title()))
	for _, s := range []string{joinArtists(meta.Artists()), meta.Album()} {
		longest = max(longest, len([]rune(s)))
	}
	if longest > m.textWidth() {
		loopPoint := longest + len([]rune(scrollSeparator))
		if m.scrollOffset >= loopPoint {
			m.scrollOffset = 0
			m.scrollPause = 30 // Pause for 3 seconds when looping back
		}
	}
}

// textWidth is the room left for a label's value inside the box
func (m model) textWidth() int {
	cfg := config.Get()
	width := cfg.UI.MaxWidth - 10
	if m.showArtwork() {
		width -= cfg.Artwork.Padding
	}
	return max(width, 8)
}

func (m model) showArtwork() bool {
	return m.artworkEncoded != "" && m.supportsKitty && config.Get().Artwork.Enabled
}
