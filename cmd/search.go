package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"botchat/storage"
)

var searchLimit int

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum number of matches to print (0 for all)")
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Fuzzy-search the messages of every recorded conversation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := openLog()
		if err != nil {
			return err
		}
		defer log.Close()

		matches, err := storage.SearchConversations(log, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for i, m := range matches {
			if searchLimit > 0 && i == searchLimit {
				fmt.Printf("... %d more\n", len(matches)-i)
				break
			}
			fmt.Printf("%s  %s  [%s] %s\n    %s\n", m.ConversationID, m.Title,
				m.Timestamp.Local().Format("15:04"), m.Role, m.Preview)
		}
		return nil
	},
}
