package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EmberTeam/ember-go-engine/cmd/utils"
	"github.com/EmberTeam/ember-go-engine/config"
)

var cfg *config.Config

var RootCmd = &cobra.Command{
	Use:   "ember",
	Short: "Ember bonding-curve trading engine",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		v := viper.New()
		v.SetConfigFile(utils.GetEmberConfigPath())
		cfg = config.GetConfig(utils.GetEmberHome())

		if err := v.ReadInConfig(); err != nil {
			panic(err)
		}

		if err := v.Unmarshal(cfg); err != nil {
			panic(err)
		}

		if cfg.KeepLastStates < 1 {
			panic("keep_last_states field should be greater than 0")
		}
	},
}
