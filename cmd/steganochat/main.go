// Command steganochat composes and reads covert messages hidden inside
// PNG cover images, backed by an encrypted contacts store and a
// forward-secure pairwise ratchet.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"steganochat/internal/privacylog"
)

// version is set at build time via ldflags; "dev" otherwise.
var version = "dev"

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "steganochat",
		Short: "Hide and recover covert messages inside cover images",
		Long: `SteganoChat embeds an encrypted message across a set of PNG cover
images using entropy-guided least-significant-bit steganography, protected
by a forward-secure pairwise ratchet between contacts.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(verbose)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug-level detail (identifiers are fingerprinted, never printed in the clear)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(composeCmd())
	rootCmd.AddCommand(receiveCmd())
	rootCmd.AddCommand(inviteCmd())
	rootCmd.AddCommand(acceptCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger installs the process-wide slog default: text output to
// stderr, with privacylog.ReplaceAttr wired into the handler options so
// passphrases, key material, and stable/dynamic IDs never reach the log
// stream in the clear, even at debug level.
func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: privacylog.ReplaceAttr,
	})
	slog.SetDefault(slog.New(handler))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get the version and platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("SteganoChat CLI, version %s, %s/%s\n", version, runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
