package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"nowserving/mpris"
	"nowserving/mpris/dbustransport"
)

// intents buffered between controllers and the run loop
const queueSize = 64

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("nowserving", pflag.ExitOnError)
	registerFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := initConfig(viper.New(), flags); err != nil {
		return err
	}
	cfg := config.Get()

	headless, _ := flags.GetBool("headless")
	headless = headless || !isatty.IsTerminal(os.Stdout.Fd())

	// The terminal belongs to the UI, so logs go to a file there
	logger := log.New(os.Stderr, "nowserving: ", log.LstdFlags)
	if !headless {
		f, err := tea.LogToFile(filepath.Join(os.TempDir(), "nowserving.log"), "nowserving")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger = log.Default()
	}

	fs := afero.NewOsFs()
	lib, err := loadLibrary(fs, cfg.Library.Path)
	if err != nil {
		return err
	}
	thumbnailLibrary(fs, lib, cfg.Artwork.ThumbnailDir, logger)

	h, err := newHost(lib, logger)
	if err != nil {
		return err
	}

	bus, err := dbustransport.ConnectSession()
	if err != nil {
		return err
	}
	defer bus.Close()

	queue := mpris.NewQueue(queueSize)
	defer queue.Close()

	mp, err := mpris.Simple(bus, cfg.Player.Name, cfg.Player.Identity, h.declare(cfg),
		mpris.WithDispatcher(queue),
		mpris.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to publish player: %w", err)
	}
	defer mp.Close()
	h.attach(mp)

	if headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger.Printf("serving %s (%s)", mpris.BusNamePrefix+cfg.Player.Name, mp.Variant())
		return runHeadless(ctx, h, queue, time.Duration(cfg.Timing.UIRefreshMs)*time.Millisecond)
	}

	if _, err := tea.NewProgram(newModel(h, queue, fs), tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return nil
}
