package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/hiway/cartwall/pkg/cartwall"
	"github.com/hiway/cartwall/pkg/config"
	"github.com/hiway/cartwall/pkg/pad"
)

// loadConfig loads configuration from standard locations.
func loadConfig(log zerolog.Logger) *config.Config {
	// Config file paths in order of increasing priority
	configFiles := []string{
		"/usr/local/etc/cartwall.toml", // System-wide
	}

	// User config dir (e.g., ~/.config/cartwall/cartwall.toml)
	userConfigPath, err := xdg.ConfigFile("cartwall/cartwall.toml")
	if err == nil {
		configFiles = append(configFiles, userConfigPath)
	} else {
		log.Warn().Err(err).Msg("Could not determine user config directory")
	}

	// Local config file
	configFiles = append(configFiles, "./cartwall.toml")

	// Highest-priority existing file wins
	for i := len(configFiles) - 1; i >= 0; i-- {
		file := configFiles[i]
		if _, err := os.Stat(file); err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", file).Msg("Error checking config file")
			}
			continue
		}
		cfg, err := config.LoadConfig(file, log)
		if err != nil {
			log.Warn().Err(err).Str("path", file).Msg("Failed to load config file")
			continue
		}
		log.Debug().Str("path", file).Msg("Loaded config")
		return cfg
	}

	return config.Default()
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	log = log.Level(zerolog.InfoLevel)

	cfg := loadConfig(log)
	if cfg.Debug {
		log = log.Level(zerolog.DebugLevel)
	}

	// Pad state changes arrive on playback goroutines; printing is safe
	// cross-thread, so no further marshalling is needed here.
	listener := func(p *pad.Pad, s pad.State) {
		fmt.Printf("\r\npad %d [%s] %s\r\n", p.Index(), p.Label(), s)
	}

	cw, err := cartwall.New(cfg, nil, listener, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start cartwall")
	}

	for ordinal, loadErr := range cw.LoadSheet() {
		fmt.Fprintf(os.Stderr, "pad %d: %v\r\n", ordinal, loadErr)
	}

	// Status line clock, always on while the app runs.
	statusKey := "status-" + uuid.NewString()
	cw.Clock().Register(statusKey, func(currentTime, remaining string) {
		fmt.Printf("\r%s  %s  [1-9] play  [c] clock  [q] quit ", currentTime, remaining)
	})

	// Switch stdin to raw mode so single keys trigger pads
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set raw mode")
	}

	shutdown := func() {
		cw.Stop()
		term.Restore(int(os.Stdin.Fd()), oldState)
		fmt.Print("\r\n")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		shutdown()
		os.Exit(0)
	}()

	// Extra full-size clock view, toggled with 'c'. Each view registers
	// under a generated key and unregisters when closed.
	var clockViewKey string

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			log.Error().Err(err).Msg("Stdin read error")
			break
		}
		if n == 0 {
			continue
		}

		switch b := buf[0]; {
		case b >= '1' && b <= '9':
			cw.Trigger(int(b - '0'))
		case b == 'c' || b == 'C':
			if clockViewKey == "" {
				clockViewKey = uuid.NewString()
				cw.Clock().Register(clockViewKey, func(currentTime, remaining string) {
					fmt.Printf("\r\n  == %s  %s ==\r\n", currentTime, remaining)
				})
			} else {
				if err := cw.Clock().Unregister(clockViewKey); err != nil {
					log.Error().Err(err).Msg("Failed to close clock view")
				}
				clockViewKey = ""
			}
		case b == 'q' || b == 'Q' || b == 0x03: // q or Ctrl-C
			shutdown()
			return
		}
	}

	shutdown()
}
