package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/alimasry/go-pos-sync/config"
	"github.com/alimasry/go-pos-sync/metrics"
	"github.com/alimasry/go-pos-sync/server"
	"github.com/alimasry/go-pos-sync/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("POS_CONFIG"), "YAML config file")
	addr := flag.String("addr", "", "HTTP listen address, overrides host and port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil && *addr != "" {
		err = cfg.SetAddr(*addr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.NewBackend(cfg.Backend, cfg.DataDir)
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, backend, store.WithLogger(log.With("component", "store")))
	if err != nil {
		backend.Close()
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()

	m := metrics.New()
	hub := server.NewHub(m, server.WithHubLogger(log.With("component", "bus")))

	handler := server.NewHandler(st, hub, m, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDirs:     cfg.StaticDirs,
		BodyLimit:      cfg.BodyLimit,
		RelayRate:      cfg.Relay.RatePerSecond,
		RelayBurst:     cfg.Relay.Burst,
	}, log.With("component", "http"))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	log.Info("server listening", "addr", ln.Addr().String(), "backend", cfg.Backend, "dataDir", cfg.DataDir)
	printBanner(cfg.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run()
		return nil
	})
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		// Close the bus first so WebSocket clients get a close frame.
		hub.Close()

		sctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout))
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("graceful shutdown timed out, closing connections", "error", err)
			srv.Close()
		}
		return nil
	})
	return g.Wait()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func printBanner(port int) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	p := strconv.Itoa(port)

	fmt.Println()
	fmt.Println(bold("  POS sync server running"))
	fmt.Printf("  Local:   %s\n", cyan("http://localhost:"+p))
	for _, ip := range lanAddrs() {
		fmt.Printf("  Network: %s\n", cyan("http://"+net.JoinHostPort(ip, p)))
	}
	fmt.Println()
}

// lanAddrs lists the non-loopback IPv4 addresses other devices can reach.
func lanAddrs() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
			continue
		}
		if ip := ipnet.IP.String(); !strings.HasPrefix(ip, "169.254.") {
			out = append(out, ip)
		}
	}
	return out
}
