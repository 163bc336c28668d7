package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"botchat/storage"
	"botchat/transcript"
)

func init() {
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [conversation-id] [path]",
	Short: "Export the finalized messages of a conversation as JSON",
	Long: `Export writes the reconciled transcript of a recorded conversation to a
JSON file. Without a path the file goes to ~/Downloads.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openLog()
		if err != nil {
			return err
		}
		defer log.Close()

		id := args[0]
		acts, err := loadConversation(log, id)
		if err != nil {
			return err
		}
		meta, err := log.Conversation(id)
		if err != nil {
			return err
		}

		path := storage.GenerateExportPath(meta.Title)
		if len(args) == 2 {
			path = args[1]
		}
		if err := storage.ExportTranscript(path, id, transcript.Reconcile(acts)); err != nil {
			return err
		}
		fmt.Printf("Exported %s to %s\n", id, path)
		return nil
	},
}
