package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/server"
)

// ServerCmd starts the smrt HTTP server
var ServerCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"serve"},
	Short:   "Start the HTTP API and WebSocket chat server",
	Long: `Load the configured tables and serve the chat, table, search, statistics
and report endpoints. The data directory watcher and the Kafka refresh trigger
start when configured.`,
	RunE: runServer,
}

var serverPort int

func init() {
	ServerCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Listen port (overrides server.port)")
}

func runServer(cmd *cobra.Command, args []string) error {
	// default to info logging for the server
	verbosity, _ := cmd.Flags().GetCount("verbose")
	if verbosity == 0 {
		verbosity = 1
	}
	jsonLogs, _ := cmd.Flags().GetBool("log-json")
	if err := initLogger(jsonLogs, verbosity); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	port := a.cfg.GetServerPort()
	if serverPort > 0 {
		port = serverPort
	}

	printStartupBanner(verbosity, port, a.source.Name(), string(a.provider))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.load(ctx); err != nil {
		pterm.Warning.Printf("Initial load failed, serving partial data: %v\n", err)
	}
	stopTriggers := a.startTriggers(ctx)
	defer stopTriggers()

	srv := server.New(server.Options{
		Store:          a.store,
		Assistant:      a.assistant,
		Metrics:        a.metrics.Handler(),
		Refreshes:      a.metrics,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Logger:         a.logger.Named("server"),
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx, port)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return errors.Wrap(err, "server failed")
	case <-sigChan:
		pterm.Info.Println("\nShutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownDone <- srv.Stop()
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("\nForce shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}
