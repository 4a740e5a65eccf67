package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List or run inline tools",
	Long: `Chat messages may contain inline tool calls such as

  {{search(query="quarterly revenue")}}
  {{calculate(expression="1200 * 1.2")}}
  {{time(zone="Asia/Tokyo")}}

Each call is executed before the message is sent and its result is appended
directly after it.`,
	RunE: runToolsList,
}

var toolsRunCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Resolve the tool calls in a message and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolsRun,
}

func init() {
	toolsCmd.AddCommand(toolsRunCmd)
	rootCmd.AddCommand(toolsCmd)
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	if agentService == nil {
		return errors.New("agent service not configured")
	}

	for _, tool := range agentService.Tools() {
		cmd.Printf("  %s\n", tool.Name)
		cmd.Printf("    %s\n", tool.Description)
		if len(tool.Aliases) > 0 {
			cmd.Printf("    Aliases: %s\n", strings.Join(tool.Aliases, ", "))
		}
	}
	return nil
}

func runToolsRun(cmd *cobra.Command, args []string) error {
	if agentService == nil {
		return errors.New("agent service not configured")
	}

	out, results := agentService.Process(context.Background(), args[0])
	cmd.Println(out)

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		cmd.PrintErrf("\n%d of %d tool calls failed\n", failed, len(results))
	}
	return nil
}
