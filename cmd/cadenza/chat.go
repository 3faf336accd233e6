package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harmonyshop/cadenza"
	"github.com/harmonyshop/cadenza/internal/presentation/tui"
)

// chatCmd starts the interactive terminal session.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive support conversation",
	Long:  `Starts the assistant in the terminal. Conversations are checkpointed, so a thread id can be resumed later.`,
	Run: func(cmd *cobra.Command, args []string) {
		headless, _ := cmd.Flags().GetBool("headless")
		threadID, _ := cmd.Flags().GetString("thread")

		engine, _, cleanup, err := buildEngine(cmd, nil)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		runner := cadenza.NewRunner()
		runner.Input = os.Stdin
		runner.Output = os.Stdout
		runner.Headless = headless
		if threadID != "" {
			runner.ThreadID = threadID
		}
		if !headless {
			tui.PrintBanner()
			runner.Renderer = tui.NewRenderer()
		}

		if err := runner.Run(context.Background(), engine); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Bool("headless", false, "Plain IO without banner or markdown rendering")
	chatCmd.Flags().StringP("thread", "t", "", "Thread id to resume (default: a fresh id)")

	// Make 'chat' the default when no command is given.
	rootCmd.Run = chatCmd.Run
}
