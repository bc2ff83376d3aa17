package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EmberTeam/ember-go-engine/version"
)

var Version = &cobra.Command{
	Use:   "version",
	Short: "Show this engine's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Version)
		return nil
	},
}
