package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-chat/internal/adapters/driving/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Ingest files dropped into a folder",
	Long: `Watch a folder and keep the document store in step with it.

New files are ingested, changed files replace their previous version and
deleted files are removed. Unsupported formats and hidden files are
ignored. Subfolders are not watched.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchScan bool

func init() {
	watchCmd.Flags().BoolVar(&watchScan, "scan", true, "ingest files already in the folder first")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	w, err := watch.New(documentService, args[0],
		watch.WithInitialScan(watchScan),
		watch.WithEventHandler(func(e watch.Event) {
			switch e.Action {
			case watch.ActionAdded, watch.ActionReplaced:
				cmd.Printf("%s %s (%s)\n", e.Action, e.Document.Name, e.Document.ID)
			case watch.ActionRemoved:
				cmd.Printf("removed %s\n", e.Path)
			case watch.ActionFailed:
				cmd.PrintErrf("failed %s: %v\n", e.Path, e.Err)
			}
		}),
	)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Dir())
	return w.Run(cmd.Context())
}
