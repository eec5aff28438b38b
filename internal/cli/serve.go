package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/csr/internal/server"
)

var (
	flagServeHost      string
	flagServePort      int
	flagStandardsDir   string
	flagServeAuthToken string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP review API",
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := map[string]string{
			"host":         flagServeHost,
			"standardsDir": flagStandardsDir,
			"authToken":    flagServeAuthToken,
		}
		if flagServePort > 0 {
			overrides["port"] = strconv.Itoa(flagServePort)
		}
		cfg, err := loadConfig(overrides)
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

		if cfg.Server.AuthToken == "demo-token" {
			a.logger.Warn("using the default auth token; set CSR_AUTH_TOKEN for anything beyond local use")
		}
		a.logger.Info("starting csr",
			zap.String("version", version),
			zap.String("model", cfg.Model.Provider+"/"+cfg.Model.ID),
			zap.String("mode", cfg.Execution.Mode),
			zap.Int("standards_sets", a.engine.Catalog().Len()),
		)

		srv := server.New(a.engine, cfg.Server, a.logger)
		if err := srv.ListenAndServe(ctx); err != nil {
			a.logger.Error("server stopped", zap.Error(err))
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagServeHost, "host", "", "Listen host")
	serveCmd.Flags().IntVar(&flagServePort, "port", 0, "Listen port")
	serveCmd.Flags().StringVar(&flagStandardsDir, "standards-dir", "", "Directory holding standards sets")
	serveCmd.Flags().StringVar(&flagServeAuthToken, "auth-token", "", "Bearer token clients must present")
}
