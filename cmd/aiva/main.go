package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/aiva-chat/internal/config"
)

// Version is set via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "aiva",
		Short:         "AivaChat: chat with Aiva from a browser client or the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, `storage backend: "memory", "file", "redis" or "firestore"`)
	root.PersistentFlags().BoolVar(&cfg.UseMockLLM, "mock", cfg.UseMockLLM, "use the scripted mock model instead of Gemini")

	root.AddCommand(newServeCmd(cfg))
	root.AddCommand(newChatCmd(cfg))
	return root
}
