package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nowserving/mpris"
)

func (m model) View() string {
	// Get config snapshot for rendering
	cfg := config.Get()
	p := m.h.p
	meta := p.Metadata()
	status := p.PlaybackStatus()
	position := p.Position()
	length, hasLength := meta.Length()

	// Use lipgloss.Color to validate the color input
	color := lipgloss.Color(m.color)
	highlight := lipgloss.NewStyle().Foreground(color)
	white := lipgloss.NewStyle().Foreground(lipgloss.Color("15")) // ANSI white

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2)

	labelStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	var textContent strings.Builder
	var progressBarContent string

	textContent.WriteString(highlight.Render("󰓃 Now Serving") + "\n\n")

	current, total := m.h.queuePosition()
	if total == 0 {
		textContent.WriteString(mutedStyle.Render("Nothing queued") + "\n\n")
		textContent.WriteString(dimStyle.Render("Open a file from any MPRIS controller"))
	} else {
		addLine := func(label, value string) {
			if value != "" {
				fmt.Fprintf(&textContent, "%s %s\n", labelStyle.Render(label), value)
			}
		}

		maxLen := m.textWidth()
		addLine("󰎈 ", scrollText(meta.Title(), maxLen, m.scrollOffset))
		addLine("󰠃 ", scrollText(joinArtists(meta.Artists()), maxLen, m.scrollOffset))
		addLine("󰀥 ", scrollText(meta.Album(), maxLen, m.scrollOffset))

		addLine(statusIcon(status), fmt.Sprintf("%s  %s", status, dimStyle.Render(fmt.Sprintf("%d/%d", current, total))))
		addLine(loopIcon(p.LoopStatus()), modeLine(p.Shuffle(), p.Volume(), p.Rate()))

		if hasLength && length > 0 {
			// Bar width calculated from max_width, leaving room for timestamps
			barWidth := max(cfg.UI.MaxWidth-17, 4)
			progress := min(float64(position)/float64(length), 1)
			filled := int(float64(barWidth) * progress)
			progressBar := highlight.Render(strings.Repeat("█", filled)) +
				white.Render(strings.Repeat("─", barWidth-filled))

			progressBarContent = fmt.Sprintf(
				"\n%s %s/%s",
				progressBar,
				highlight.Render(formatTime(position)),
				highlight.Render(formatTime(length)),
			)
		}
	}

	if m.lastError != nil {
		textContent.WriteString("\n" + errorStyle.Render(truncateText("Error: "+m.lastError.Error(), m.textWidth()+3)))
	}

	// Combine artwork and text content
	var topSection string
	if m.showArtwork() {
		// Add padding to the left of text to make room for the image
		paddedText := lipgloss.NewStyle().
			PaddingLeft(cfg.Artwork.Padding).
			Render(textContent.String())
		topSection = m.artworkEncoded + paddedText
	} else if m.supportsKitty {
		// Delete any image left from an earlier track
		topSection = "\033_Ga=d,d=A\033\\" + textContent.String()
	} else {
		topSection = textContent.String()
	}

	contentStr := borderStyle.
		Width(cfg.UI.MaxWidth).
		Render(topSection + progressBarContent)

	// Build help text - either full help or hint to press ?
	var helpText string
	if m.showHelp {
		helpText = lipgloss.NewStyle().
			Width(cfg.UI.MaxWidth).
			Align(lipgloss.Center).
			Render(lipgloss.JoinVertical(
				lipgloss.Center,
				"Play/Pause: "+highlight.Render("p")+
					"  Next: "+highlight.Render("n")+
					"  Previous: "+highlight.Render("b")+
					"  Stop: "+highlight.Render("s"),
				"Seek: "+highlight.Render("←/→")+
					"  Loop: "+highlight.Render("l")+
					"  Shuffle: "+highlight.Render("r")+
					"  Volume: "+highlight.Render("+/-"),
				"Toggle Art: "+highlight.Render("a")+
					"  Quit: "+highlight.Render("q")+
					"  Hide: "+highlight.Render("?"),
			))
	} else {
		helpText = mutedStyle.Render("Press ? for help")
	}

	fullUI := lipgloss.JoinVertical(lipgloss.Center, contentStr, "\n"+helpText)

	return lipgloss.Place(
		m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		fullUI,
	)
}

func statusIcon(status mpris.PlaybackStatus) string {
	switch status {
	case mpris.Paused:
		return "󰏤 "
	case mpris.Stopped:
		return "󰓛 "
	}
	return "󰐊 "
}

func loopIcon(loop mpris.LoopStatus) string {
	switch loop {
	case mpris.LoopTrack:
		return "󰑘 "
	case mpris.LoopPlaylist:
		return "󰑖 "
	}
	return "󰑗 "
}

// modeLine summarizes shuffle, volume and rate
func modeLine(shuffle bool, volume, rate float64) string {
	var b strings.Builder
	if shuffle {
		b.WriteString("shuffle  ")
	}
	fmt.Fprintf(&b, "vol %d%%", int(volume*100+0.5))
	if rate != 1 {
		fmt.Fprintf(&b, "  %.2gx", rate)
	}
	return b.String()
}

func joinArtists(artists []string) string {
	return strings.Join(artists, ", ")
}
