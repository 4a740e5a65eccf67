package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-chat/internal/core/domain"
)

var chatSources bool

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the model over your documents",
	Long: `Sends a message to the inference server and streams the reply.

Inline tool calls are resolved first, then the message is augmented with the
passages retrieved from your documents. Without an argument, chat reads one
message per line from standard input; type /reset to start over and /exit to
quit. Use 'sercha-chat tui' for a full-screen chat.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVarP(&chatSources, "sources", "s", false, "list the passages used after each reply")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 1 {
		return sendChat(ctx, cmd, args[0])
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			chatService.Reset()
			cmd.Println("Conversation cleared.")
			continue
		}

		if err := sendChat(ctx, cmd, line); err != nil {
			// Keep the session alive; the failed turn is not recorded.
			cmd.PrintErrf("Error: %v\n", err)
		}
	}
}

func sendChat(ctx context.Context, cmd *cobra.Command, message string) error {
	out := cmd.OutOrStdout()
	reply, err := chatService.Send(ctx, message, func(delta string) error {
		_, err := io.WriteString(out, delta)
		return err
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	cmd.Println()

	if chatSources {
		printSources(cmd, reply)
	}
	return nil
}

func printSources(cmd *cobra.Command, reply *domain.ChatReply) {
	if len(reply.Context) == 0 {
		cmd.Println("(no passages used)")
		return
	}
	cmd.Println("Sources:")
	for i, c := range reply.Context {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, c.DocumentName, c.Score)
	}
}
