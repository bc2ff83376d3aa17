package main

import (
	"github.com/EmberTeam/ember-go-engine/cmd/ember/cmd"
	"github.com/EmberTeam/ember-go-engine/cmd/utils"
)

func main() {
	rootCmd := cmd.RootCmd
	rootCmd.PersistentFlags().StringVar(&utils.EmberHome, "home-dir", "", "base dir (default is $HOME/.ember)")
	rootCmd.PersistentFlags().StringVar(&utils.EmberConfig, "config", "", "path to config.toml (default is $HOME/.ember/config/config.toml)")

	cmd.RunEngine.Flags().Bool("pprof", false, "enable pprof")
	cmd.RunEngine.Flags().String("pprof-addr", "localhost:6060", "pprof listen addr")

	cmd.ExportCommand.Flags().Uint64("height", 0, "height to export at (0 is latest)")
	cmd.ExportCommand.Flags().Bool("indent", false, "indent the exported JSON")

	rootCmd.AddCommand(
		cmd.RunEngine,
		cmd.ExportCommand,
		cmd.ManagerCommand,
		cmd.ManagerConsole,
		cmd.Version)

	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
