// Package cli wires amcjournal's cobra command tree, grounded on the
// teacher's cmd/gastrolog/cli layout: a root command carrying persistent
// flags, with leaf commands doing the actual work.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

// Root constructs the amcjournal root command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "amcjournal",
		Short: "AMC state journal server",
		Long:  "amcjournal runs the Autodesk Machine Control state journal: it records variable updates from drivers and answers historical point-sample queries.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "amcjournal.yaml", "path to the server config file")

	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	return root
}
