package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/smrt/reports"
)

// ReportCmd renders a plain-text report
var ReportCmd = &cobra.Command{
	Use:       "report <type>",
	Short:     "Render a plain-text business report",
	Long:      "Render one of: " + strings.Join(reports.Kinds, ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: reports.Kinds,
	RunE:      runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := loadedApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	text, err := reports.Text(a.store, args[0], time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
