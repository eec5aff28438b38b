package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/csr/internal/mcptool"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve review tools over the Model Context Protocol (stdio)",
	Long: "Serve the review_content and list_standards tools over stdio so editor agents " +
		"can request reviews. Logs go to stderr; stdout carries the protocol.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(map[string]string{"standardsDir": flagMCPStandardsDir})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		defer a.close()

		if err := mcptool.ServeStdio(ctx, mcptool.NewServer(a.engine, version, a.logger)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

var flagMCPStandardsDir string

func init() {
	mcpCmd.Flags().StringVar(&flagMCPStandardsDir, "standards-dir", "", "Directory holding standards sets")
}
