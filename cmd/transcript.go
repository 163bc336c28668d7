package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/spf13/cobra"

	"botchat/activity"
	"botchat/storage"
	"botchat/transcript"
)

var (
	transcriptRaw   bool
	transcriptWidth int
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(deleteCmd)

	transcriptCmd.Flags().BoolVar(&transcriptRaw, "raw", false, "print the logged activities as JSON lines instead")
	transcriptCmd.Flags().IntVarP(&transcriptWidth, "width", "w", 80, "wrap width for rendered messages")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded conversations, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openLog()
		if err != nil {
			return err
		}
		defer log.Close()

		convs, err := log.Conversations()
		if err != nil {
			return err
		}
		if len(convs) == 0 {
			fmt.Println("No conversations recorded yet.")
			return nil
		}
		for _, c := range convs {
			fmt.Printf("%s  %-10s  %4d  %s  %s\n",
				c.UpdatedAt.Local().Format("2006-01-02 15:04"), c.Backend, c.ActivityCount, c.ID, c.Title)
		}
		return nil
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript [conversation-id]",
	Short: "Replay a recorded conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openLog()
		if err != nil {
			return err
		}
		defer log.Close()

		acts, err := loadConversation(log, args[0])
		if err != nil {
			return err
		}

		if transcriptRaw {
			enc := json.NewEncoder(os.Stdout)
			for _, a := range acts {
				if err := enc.Encode(a); err != nil {
					return fmt.Errorf("failed to encode activity: %w", err)
				}
			}
			return nil
		}

		fmt.Print(renderTranscript(transcript.Reconcile(acts), transcriptWidth))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [conversation-id]",
	Short: "Delete a recorded conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openLog()
		if err != nil {
			return err
		}
		defer log.Close()

		if _, err := loadConversation(log, args[0]); err != nil {
			return err
		}
		if err := log.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

// loadConversation fails for ids the log has never seen.
func loadConversation(log *storage.ActivityLog, id string) ([]activity.Activity, error) {
	meta, err := log.Conversation(id)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	return log.Load(id)
}

// renderTranscript prints finalized messages as terminal markdown. A stream
// that never finished is shown as plain text at the end.
func renderTranscript(model transcript.RenderModel, width int) string {
	var b strings.Builder
	for _, m := range model.Messages {
		who := "Bot"
		if m.Role == activity.RoleUser {
			who = "You"
		}
		fmt.Fprintf(&b, "[%s] %s\n", m.Timestamp.Local().Format("15:04"), who)
		b.Write(markdown.Render(m.Text, width, 2))
		for _, att := range m.Attachments {
			for _, line := range activity.CardSummary(att) {
				fmt.Fprintf(&b, "  | %s\n", line)
			}
		}
		for i, c := range m.Citations {
			fmt.Fprintf(&b, "  [%d] %s %s\n", i+1, c.Name, c.URL)
		}
		b.WriteString("\n")
	}
	if model.StreamingText != nil {
		fmt.Fprintf(&b, "[unfinished] Bot\n  %s\n", *model.StreamingText)
	}
	return b.String()
}
