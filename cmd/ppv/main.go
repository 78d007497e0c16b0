// Command ppv captures notes and action items into a Notion PPV workspace.
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"ppv/cmd/ppv/cmd"
	"ppv/internal/shutdown"
	"ppv/internal/utils"
)

// cleanupTimeout bounds the cleanups run on exit
const cleanupTimeout = 10 * time.Second

var loadDotEnv = godotenv.Load

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load .env file (ignore error if file doesn't exist)
	if err := loadDotEnv(); err != nil && !os.IsNotExist(err) {
		utils.Warnf("failed to load .env: %v", err)
	}

	mgr := shutdown.NewManager()
	mgr.ListenForSignals()

	code := cmd.Execute(args, os.Stdout, os.Stderr, &cmd.Config{Shutdown: mgr})

	mgr.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := mgr.Wait(ctx); err != nil {
		utils.Warnf("cleanup did not finish: %v", err)
	}
	return code
}
