// cmd/barrierd/main.go
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/barrier-gateway/internal/audit"
	"github.com/tamzrod/barrier-gateway/internal/barrier"
	"github.com/tamzrod/barrier-gateway/internal/board"
	"github.com/tamzrod/barrier-gateway/internal/config"
	"github.com/tamzrod/barrier-gateway/internal/transport"
)

func main() {
	log := initLogger()

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: barrierd <config.yaml>")
	}
	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validation failed")
	}
	config.Normalize(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --------------------
	// Build boards + monitors
	// --------------------

	boards := make([]*board.Board, 0, len(cfg.Gateway.Boards))
	monitors := make([]*board.Monitor, 0, len(cfg.Gateway.Boards))

	for _, bc := range cfg.Gateway.Boards {
		conn := transport.New(transport.Config{
			Address: net.JoinHostPort(bc.Host, fmt.Sprint(bc.Port)),
			Timeout: time.Duration(bc.TimeoutMs) * time.Millisecond,
		})
		bd := board.New(board.Config{
			Key:      bc.Key,
			Host:     bc.Host,
			Port:     bc.Port,
			UnitID:   bc.UnitID,
			Channels: bc.Channels,
		}, conn)
		defer bd.Close()

		boards = append(boards, bd)
		monitors = append(monitors,
			board.NewMonitor(bd, time.Duration(bc.PollMs)*time.Millisecond, log))
	}

	registry := board.NewRegistry(boards...)

	// --------------------
	// Build barrier service
	// --------------------

	barriers := make([]barrier.Config, 0, len(cfg.Gateway.Barriers))
	for _, brc := range cfg.Gateway.Barriers {
		barriers = append(barriers, barrier.Config{
			ID:        brc.ID,
			StringID:  brc.StringID,
			Name:      brc.Name,
			Board:     brc.Board,
			LiftCoil:  brc.LiftCoil,
			CloseCoil: brc.CloseCoil,
			StopCoil:  brc.StopCoil,
		})
	}

	timing := barrier.Timing{
		Settle:    time.Duration(cfg.Gateway.Timing.SettleMs) * time.Millisecond,
		LiftPulse: time.Duration(cfg.Gateway.Timing.LiftPulseMs) * time.Millisecond,
		StopPulse: time.Duration(cfg.Gateway.Timing.StopPulseMs) * time.Millisecond,
		CloseHold: time.Duration(cfg.Gateway.Timing.CloseHoldMs) * time.Millisecond,
	}

	svc, err := barrier.NewService(registry, barriers, timing, audit.NewLogSink(log), log)
	if err != nil {
		log.Fatal().Err(err).Msg("barrier service build failed")
	}

	// --------------------
	// Run heartbeats until shutdown
	// --------------------

	var wg sync.WaitGroup
	for _, m := range monitors {
		wg.Add(1)
		go func(m *board.Monitor) {
			defer wg.Done()
			m.Run(ctx)
		}(m)
	}

	log.Info().
		Int("boards", len(boards)).
		Int("barriers", len(barriers)).
		Msg("barrierd running")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	wg.Wait()

	// Leave no coil energized behind a dead controller.
	svc.EmergencyOff("shutdown")
}

func initLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", "barrierd").Logger()
}
