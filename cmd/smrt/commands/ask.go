package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/smrt/assistant"
)

// AskCmd answers one question from the command line
var AskCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question against the configured data",
	Long: `Load the configured tables and answer a single natural-language question,
the same way POST /api/chat does.

Examples:
  smrt ask "how many customers do we have"
  smrt ask "show orders for Alice Smith" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var askJSON bool

func init() {
	AskCmd.Flags().BoolVarP(&askJSON, "json", "j", false, "Output the full reply as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var spinner *pterm.SpinnerPrinter
	if !askJSON {
		spinner, _ = pterm.DefaultSpinner.Start("Loading data...")
	}
	err = a.load(ctx)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	reply, err := a.assistant.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return printReply(cmd, reply)
}

func printReply(cmd *cobra.Command, reply assistant.Reply) error {
	if askJSON {
		return outputJSON(cmd.OutOrStdout(), reply)
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply.Response)
	if reply.Status == assistant.StatusError {
		return fmt.Errorf("question could not be answered")
	}
	return nil
}
