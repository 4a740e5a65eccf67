package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var augmentOutput string

var augmentCmd = &cobra.Command{
	Use:   "augment [prompt]",
	Short: "Show a prompt with retrieved context spliced in",
	Long: `Prints the prompt exactly as it would be sent to the model: the retrieved
passages are wrapped around the question using the "augment" prompt template
(~/.sercha-chat/prompts/augment.txt). With nothing retrieved the prompt is
printed unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runAugment,
}

func init() {
	addOutputFlag(augmentCmd, &augmentOutput)
	rootCmd.AddCommand(augmentCmd)
}

func runAugment(cmd *cobra.Command, args []string) error {
	if promptService == nil {
		return errors.New("prompt service not configured")
	}

	augmented, err := promptService.AugmentPromptWithRAG(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("augmentation failed: %w", err)
	}

	augmented.Context = stripEmbeddings(augmented.Context)
	if done, err := printStructured(cmd, augmentOutput, augmented); done {
		return err
	}

	cmd.Println(augmented.Prompt)
	if len(augmented.Context) > 0 {
		cmd.PrintErrf("\n(%d passages retrieved)\n", len(augmented.Context))
	}
	return nil
}
