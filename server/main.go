package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/natelandrum/file-transfer-project/server/protocol"
	"github.com/natelandrum/file-transfer-project/server/store"
	"github.com/natelandrum/file-transfer-project/server/terminal"
)

func main() {
	// Parse command line arguments
	config, shouldExit, err := terminal.ParseFlags(os.Args[1:])
	if err != nil {
		terminal.HandleStartupError(err, "parse command line arguments")
		return
	}

	// Exit if help or version was shown
	if shouldExit {
		return
	}

	if err := terminal.ValidateConfig(config); err != nil {
		terminal.HandleStartupError(err, "validate configuration")
		return
	}

	logFile, err := terminal.SetupLogging(config)
	if err != nil {
		terminal.HandleStartupError(err, "open log file")
		return
	}
	if logFile != nil {
		defer logFile.Close()
	}

	st, err := store.New(config.RootDir, config.LockTimeout)
	if err != nil {
		terminal.HandleStartupError(err, "open store")
		return
	}

	server := protocol.NewServer(st, protocol.ServerConfig{
		MaxConnections: config.MaxConnections,
		IdleTimeout:    config.IdleTimeout,
	})

	terminal.PrintStartupInfo(config, st.Root())

	// Stop on interrupt; open transfers are cut off
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	stopped := make(chan struct{})
	go func() {
		sig := <-sigChan
		log.Printf("Received %v, shutting down...", sig)
		if err := server.Stop(); err != nil {
			log.Printf("Shutdown: %v", err)
		}
		close(stopped)
	}()

	if err := server.ListenAndServe(config.Addr()); err != nil {
		terminal.HandleStartupError(err, "start server")
		return
	}

	<-stopped
	log.Printf("Server stopped: %s", server.Stats())
}
