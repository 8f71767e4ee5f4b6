package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/netpac/internal/config"
	"github.com/vovakirdan/netpac/internal/game"
	"github.com/vovakirdan/netpac/internal/maps"
	"github.com/vovakirdan/netpac/internal/metrics"
	"github.com/vovakirdan/netpac/internal/platform/tui"
	"github.com/vovakirdan/netpac/internal/protocol"
	"github.com/vovakirdan/netpac/internal/server"
	"github.com/vovakirdan/netpac/internal/session"
	"github.com/vovakirdan/netpac/internal/spectate"
	"github.com/vovakirdan/netpac/internal/storage"
)

var (
	flagPort     int
	flagHTTPAddr string
	flagSeed     int64
	flagSSHAddr  string
	flagHostKey  string
)

func init() {
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 8888, "TCP port to listen on")
	rootCmd.Flags().StringVar(&flagHTTPAddr, "http", "", "Spectator and metrics HTTP address, e.g. :8080 (empty disables)")
	rootCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH front end address, e.g. :23234 (empty disables)")
	rootCmd.Flags().StringVar(&flagHostKey, "host-key", "", "SSH host key path (default: ~/.netpac/host_key)")
	rootCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed for powerup respawns (0 = random based on time)")
}

func runServe(_ *cobra.Command, _ []string) {
	logger, closeLog := newLogger(flagVerbose, flagLogFile)
	defer closeLog()

	if flagPort < 0 || flagPort > 65535 {
		logger.Fatal("invalid port", "port", flagPort)
	}

	loaded, err := maps.LoadAll(flagMapsDir)
	if err != nil {
		logger.Fatal("cannot load maps", "dir", flagMapsDir, "error", err)
	}
	for _, m := range loaded {
		logger.Debug("map loaded", "name", m.Name(), "width", m.Width(), "height", m.Height(), "dots", m.Count(maps.TileDot))
	}

	rules, err := config.Load(flagConfig)
	if err != nil {
		logger.Fatal("cannot load rules", "error", err)
	}

	m := metrics.New()
	registry := session.NewRegistry(rules.Players.Max)
	ctrl := game.NewController(rules, registry, maps.NewRotation(loaded), logger.With("component", "game"))
	ctrl.SetMetrics(m)
	if flagSeed != 0 {
		ctrl.SetRand(rand.New(rand.NewSource(flagSeed)))
	}

	if flagDBPath != "" {
		store, err := storage.Open(flagDBPath)
		if err != nil {
			logger.Warn("could not open round history database", "error", err)
			// Continue without storage
		} else {
			defer store.Close()
			ctrl.SetResultSaver(store)
		}
	}

	cfg := server.DefaultConfig()
	cfg.Address = fmt.Sprintf(":%d", flagPort)
	cfg.Rules = rules
	cfg.PayloadGrace = protocol.DefaultPayloadGrace
	srv := server.New(cfg, registry, ctrl, logger.With("component", "server"))
	srv.SetMetrics(m)
	if err := srv.Listen(); err != nil {
		logger.Fatal("cannot start server", "error", err)
	}

	// Signals stop the game first so every player gets a final End packet;
	// connections and spectators are closed afterwards.
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	serveCtx, cancelServe := context.WithCancel(context.Background())
	defer cancelServe()

	var httpSrv *http.Server
	if flagHTTPAddr != "" {
		hub := spectate.NewHub(logger.With("component", "spectate"))
		hub.SetMetrics(m)
		ctrl.SetNotifier(hub)
		srv.SetNotifier(hub)
		go hub.Run(serveCtx)

		httpSrv = &http.Server{
			Addr:              flagHTTPAddr,
			Handler:           spectate.NewMux(hub, m, status(ctrl, registry)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("http listening", "address", flagHTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "error", err)
			}
		}()
	}

	sshDone := make(chan struct{})
	if flagSSHAddr != "" {
		sshCfg := tui.DefaultSSHServerConfig()
		sshCfg.Address = flagSSHAddr
		sshCfg.HostKeyPath = flagHostKey
		sshCfg.GameAddr = loopbackAddr(srv.Addr())
		sshSrv, err := tui.NewSSHServer(sshCfg, logger.With("component", "ssh"))
		if err != nil {
			logger.Fatal("cannot create ssh server", "error", err)
		}
		go func() {
			defer close(sshDone)
			if err := sshSrv.ListenAndServe(serveCtx); err != nil {
				logger.Error("ssh server failed", "error", err)
			}
		}()
	} else {
		close(sshDone)
	}

	gameDone := make(chan struct{})
	go func() {
		ctrl.Run(sigCtx)
		close(gameDone)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(serveCtx)
	}()

	logger.Info("netpac started", "port", flagPort, "maps", len(loaded), "max_players", rules.Players.Max)

	var exitErr error
	select {
	case <-sigCtx.Done():
		logger.Info("shutting down")
	case exitErr = <-serveErr:
		stop()
	}

	<-gameDone
	cancelServe()
	if exitErr == nil {
		exitErr = <-serveErr
	}

	<-sshDone

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		cancel()
	}

	if exitErr != nil {
		logger.Error("server error", "error", exitErr)
		closeLog()
		os.Exit(1)
	}
	logger.Info("bye", "rounds", m.RoundsPlayed.Load(), "connections", m.ConnectionsAccepted.Load())
}

// loopbackAddr is the address the SSH front end dials to reach the game
// server in the same process.
func loopbackAddr(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return net.JoinHostPort("127.0.0.1", strconv.Itoa(tcp.Port))
	}
	return addr.String()
}

// status reports the live game for the HTTP /status endpoint.
func status(ctrl *game.Controller, registry *session.Registry) spectate.StatusFunc {
	type player struct {
		ID     int32  `json:"id"`
		Name   string `json:"name"`
		Role   string `json:"role,omitempty"`
		Score  int    `json:"score"`
		Active bool   `json:"active"`
	}
	return func() any {
		var players []player
		registry.View(func(sessions []*session.Session) {
			for _, s := range sessions {
				p := player{ID: s.ID, Name: s.Name(), Score: s.Score, Active: s.Active}
				if s.Active {
					p.Role = s.Role.String()
				}
				players = append(players, p)
			}
		})
		return map[string]any{
			"started":  ctrl.GameStarted(),
			"map":      ctrl.CurrentMap().Name(),
			"players":  players,
			"capacity": registry.Capacity(),
		}
	}
}
