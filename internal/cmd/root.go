package cmd

import (
	"github.com/spf13/cobra"
)

// Command groups shown in help.
const (
	groupForm  = "form"
	groupData  = "data"
	groupSetup = "setup"
)

var rootCmd = &cobra.Command{
	Use:   "taller",
	Short: "workshop orders with incremental search",
	Long: `taller - workshop order entry from the terminal
  - type to search technicians, clients, vehicles and products
  - click a result to fill in the order`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupForm, Title: "Order form:"},
		&cobra.Group{ID: groupData, Title: "Search data:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)
	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(versionCmd)
}
