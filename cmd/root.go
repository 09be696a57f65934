package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Options holds configuration for the watch command
type Options struct {
	Device        int
	InputPath     string
	CascadePath   string
	WorkerPath    string
	Python        string
	WorkerTimeout string
}

// Version is the application version.
const Version = "0.0.1"

var rootCmd = &cobra.Command{
	Use:     "moodlens",
	Short:   "Live facial emotion, gender & age overlay for webcam video",
	Version: Version, // This enables the --version flag
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
