package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/csr/internal/standards"
)

var (
	flagStandardsListDir  string
	flagStandardsListJSON bool
)

var standardsCmd = &cobra.Command{
	Use:   "standards",
	Short: "Inspect standards sets",
}

var standardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the standards sets found in the standards directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(map[string]string{"standardsDir": flagStandardsListDir})
		if err != nil {
			return err
		}

		// Skipped files are reported as warnings; keep them visible.
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		catalog, err := loadCatalog(cfg, logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel)))
		if err != nil {
			return err
		}
		infos := catalog.List()

		out := cmd.OutOrStdout()
		if flagStandardsListJSON {
			data, err := json.MarshalIndent(struct {
				StandardsSets []standards.Info `json:"standards_sets"`
			}{infos}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(infos) == 0 {
			fmt.Fprintf(out, "No standards sets found in %s\n", cfg.Standards.Dir)
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tVERSION\tRULES")
		for _, info := range infos {
			rules := 0
			if e, ok := catalog.Get(info.ID); ok {
				rules = len(e.Set.Rules)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", info.ID, info.Name, info.Version, rules)
		}
		return tw.Flush()
	},
}

func init() {
	standardsCmd.AddCommand(standardsListCmd)
	standardsListCmd.Flags().StringVar(&flagStandardsListDir, "standards-dir", "", "Directory holding standards sets")
	standardsListCmd.Flags().BoolVar(&flagStandardsListJSON, "json", false, "Print as JSON")
}
