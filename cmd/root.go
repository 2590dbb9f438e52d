package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the bookshelf application
var rootCmd = &cobra.Command{
	Use:   "bookshelf",
	Short: "A small book catalog with Google sign-in",
	Long: `bookshelf serves a catalog of books over HTTP. Visitors sign in with
their Google account; signed-in users can add, edit and delete books.

Books and users are stored in a local SQLite database.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "bookshelf version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newInitDBCmd())
	rootCmd.AddCommand(newRoutesCmd())
	rootCmd.AddCommand(newVersionCmd())
}
