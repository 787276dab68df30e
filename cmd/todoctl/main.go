// Command todoctl performs one-off administration of the todo item store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "todoctl",
	Short: "Administration tool for the todo backend",
	Long: `todoctl prepares the storage the todo API runs against.

Settings are read from the same environment variables as the API
(STORE_BACKEND, TODOS_TABLE, TODO_ID_INDEX, DATABASE_URL, AWS_REGION,
AWS_ENDPOINT_URL); flags override them.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newBootstrapCmd())
	rootCmd.AddCommand(versionCmd)
}
