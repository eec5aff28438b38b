package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/output"
	"github.com/dshills/csr/internal/review"
)

// Review flags
var (
	flagStandardsSet    string
	flagStrictness      string
	flagProvider        string
	flagModel           string
	flagBaseURL         string
	flagMode            string
	flagFormat          string
	flagOut             string
	flagFailOn          string
	flagMaxObservations int
	flagMinConfidence   float64
	flagNoRationale     bool
	flagNoExcerpts      bool
	flagRedact          bool
	flagRequestID       string
	flagReviewStdDir    string
)

var failOnLevels = []string{"none", "info", "warning", "violation"}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagBaseURL != "" {
		m["baseURL"] = flagBaseURL
	}
	if flagMode != "" {
		m["mode"] = flagMode
	}
	if flagReviewStdDir != "" {
		m["standardsDir"] = flagReviewStdDir
	}
	if flagRedact {
		m["redactSecrets"] = "true"
	}
	return m
}

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Review a document against a standards set",
	Long: "Review a document against a standards set. The document is read from the named " +
		"file, or from stdin when no file (or \"-\") is given.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !validFailOn(flagFailOn) {
			return fmt.Errorf("invalid --fail-on %q (want one of %s)", flagFailOn, strings.Join(failOnLevels, ", "))
		}
		if _, err := output.GetWriter(flagFormat); err != nil {
			return err
		}
		cfg, err := loadConfig(buildOverrides())
		if err != nil {
			return err
		}

		source, content, err := readContent(cmd, args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		defer a.close()

		exitCode = runReview(ctx, cmd, a, source, content)
		return nil
	},
}

func validFailOn(s string) bool {
	for _, l := range failOnLevels {
		if s == l {
			return true
		}
	}
	return false
}

func readContent(cmd *cobra.Command, args []string) (source, content string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "stdin", string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return args[0], string(data), nil
}

func buildRequest(cmd *cobra.Command, e *review.Engine, content string) review.Request {
	req := e.NewRequest()
	req.RequestID = flagRequestID
	req.Content = content
	req.StandardsSet = flagStandardsSet
	if flagStrictness != "" {
		req.Strictness = config.Strictness(flagStrictness)
	}
	if cmd.Flags().Changed("max-observations") {
		req.Options.MaxObservations = flagMaxObservations
	}
	if cmd.Flags().Changed("min-confidence") {
		req.Options.MinConfidence = flagMinConfidence
	}
	req.Options.ReturnRationale = !flagNoRationale
	req.Options.ReturnExcerpts = !flagNoExcerpts
	return req
}

// runReview executes one review, writes the report and returns the exit code.
func runReview(ctx context.Context, cmd *cobra.Command, a *app, source, content string) int {
	if a.genErr != nil {
		fmt.Fprintf(os.Stderr, "Error: model backend unavailable: %v\n", a.genErr)
		return ExitAuthError
	}

	req := buildRequest(cmd, a.engine, content)
	if err := req.Validate(a.engine.MaxContentLength()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsageError
	}

	resp, err := a.engine.Review(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, review.ErrUnknownStandardsSet) {
			return ExitUsageError
		}
		return ExitRuntimeError
	}

	report := &output.Report{Source: source, Content: content, Response: resp}
	if err := writeReport(cmd, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return ExitRuntimeError
	}

	if a.probe.authFailed() {
		return ExitAuthError
	}
	for _, o := range resp.Observations {
		if review.MeetsThreshold(o.Severity, flagFailOn) {
			return ExitFindings
		}
	}
	if len(resp.Errors) > 0 && len(resp.Observations) == 0 {
		a.logger.Warn("review produced no observations", zap.Int("errors", len(resp.Errors)))
		return ExitRuntimeError
	}
	return ExitSuccess
}

func writeReport(cmd *cobra.Command, report *output.Report) error {
	if flagOut != "" {
		return output.WriteReport(report, flagFormat, flagOut)
	}
	w, err := output.GetWriter(flagFormat)
	if err != nil {
		return err
	}
	return w.Write(cmd.OutOrStdout(), report)
}

func init() {
	f := reviewCmd.Flags()
	f.StringVarP(&flagStandardsSet, "standards-set", "s", "", "Standards set id to review against (required)")
	f.StringVar(&flagStrictness, "strictness", "", "Strictness (low, medium, high); default medium")
	f.StringVar(&flagProvider, "provider", "", "LLM provider (openai, ollama, anthropic, gemini)")
	f.StringVar(&flagModel, "model", "", "Model name")
	f.StringVar(&flagBaseURL, "base-url", "", "Model API base URL")
	f.StringVar(&flagMode, "mode", "", "Execution mode (multi, single)")
	f.StringVar(&flagFormat, "format", "text", "Output format ("+strings.Join(output.Formats(), ", ")+")")
	f.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	f.StringVar(&flagFailOn, "fail-on", "none", "Exit 1 when an observation meets this severity ("+strings.Join(failOnLevels, ", ")+")")
	f.IntVar(&flagMaxObservations, "max-observations", 0, "Maximum observations to return (1-100)")
	f.Float64Var(&flagMinConfidence, "min-confidence", 0, "Drop observations below this confidence (0-1)")
	f.BoolVar(&flagNoRationale, "no-rationale", false, "Omit rationale from observations")
	f.BoolVar(&flagNoExcerpts, "no-excerpts", false, "Omit standard excerpts from observations")
	f.BoolVar(&flagRedact, "redact", false, "Mask secrets in the content before it is sent to the model")
	f.StringVar(&flagRequestID, "request-id", "", "Request id to report (default: generated)")
	f.StringVar(&flagReviewStdDir, "standards-dir", "", "Directory holding standards sets")
	_ = reviewCmd.MarkFlagRequired("standards-set")
}
