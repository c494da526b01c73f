package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jhlagado/tacit/cmd/tacit/logger"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool

	dataStackSize   int
	returnStackSize int
	globalSize      int
	codeSize        int
)

var rootCmd = &cobra.Command{
	Use:     "tacit",
	Short:   "Compile and run Tacit programs",
	Long:    `tacit compiles a Tacit source file and runs it to completion on a fresh VM instance, printing the final data stack.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch {
		case debug:
			logger.Init(slog.LevelDebug)
		case verbose:
			logger.Init(slog.LevelInfo)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log informational messages to stderr")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug messages to stderr (implies --verbose)")
	rootCmd.PersistentFlags().IntVar(&dataStackSize, "stack-size", 0, "DATA_STACK capacity in cells (0 = engine default)")
	rootCmd.PersistentFlags().IntVar(&returnStackSize, "return-stack-size", 0, "RETURN_STACK capacity in cells (0 = engine default)")
	rootCmd.PersistentFlags().IntVar(&globalSize, "global-size", 0, "GLOBAL heap capacity in cells (0 = engine default)")
	rootCmd.PersistentFlags().IntVar(&codeSize, "code-size", 0, "CODE segment capacity in bytes (0 = engine default)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
