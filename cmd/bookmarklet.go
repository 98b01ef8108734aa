package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cpfl/internal/bookmarklet"
)

var bookmarkletCmd = &cobra.Command{
	Use:   "bookmarklet",
	Short: "Print the token-capture bookmarklet",
	Long: `Print the javascript bookmarklet used to push tokens from a logged-in
browser session to the local listener started by the run command.`,
	Args: cobra.NoArgs,
	RunE: runBookmarklet,
}

func init() {
	rootCmd.AddCommand(bookmarkletCmd)

	bookmarkletCmd.Flags().Int("port", 8765, "Listener port the bookmarklet should target")
}

func runBookmarklet(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	fmt.Println(bookmarklet.NewServer(port).Snippet())
	return nil
}
