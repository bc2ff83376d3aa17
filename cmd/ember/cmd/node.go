package cmd

import (
	"net/http"
	_ "net/http/pprof" // nolint: gosec // securely exposed on separate, optional port
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	tmLog "github.com/tendermint/tendermint/libs/log"
	tmOS "github.com/tendermint/tendermint/libs/os"
	"golang.org/x/sync/errgroup"

	"github.com/EmberTeam/ember-go-engine/api"
	"github.com/EmberTeam/ember-go-engine/cli/service"
	"github.com/EmberTeam/ember-go-engine/cmd/utils"
	"github.com/EmberTeam/ember-go-engine/core/engine"
	"github.com/EmberTeam/ember-go-engine/core/statistics"
	"github.com/EmberTeam/ember-go-engine/genesis"
	"github.com/EmberTeam/ember-go-engine/log"
	"github.com/EmberTeam/ember-go-engine/version"
)

// RunEngine is the command that starts the trading engine host.
var RunEngine = &cobra.Command{
	Use:   "node",
	Short: "Run the Ember engine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEngine(cmd)
	},
}

func runEngine(cmd *cobra.Command) error {
	logger := log.NewLogger(cfg)

	if err := ensureDirs(); err != nil {
		return err
	}

	pprofOn, err := cmd.Flags().GetBool("pprof")
	if err != nil {
		return err
	}

	if pprofOn {
		if err := enablePprof(cmd, logger); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	homeDir, err := cmd.Flags().GetString("home-dir")
	if err != nil {
		return err
	}
	configDir, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	storages := utils.NewStorage(homeDir, configDir)
	if _, err := storages.InitStateLevelDB("data/state", engine.GetDbOpts(cfg.StateMemAvailable)); err != nil {
		return err
	}
	if _, err := storages.InitEventLevelDB("data/events", engine.GetDbOpts(1024)); err != nil {
		return err
	}

	app := engine.NewEngine(storages, cfg, ctx, logger)

	if app.InitialHeight() == 0 {
		doc, err := deploymentDoc()
		if err != nil {
			return err
		}
		app.InitDeployment(doc)
	}

	logger.Info("Started engine", "version", version.Version, "height", app.Height())

	app.SetStatisticData(statistics.New())

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return app.RunBlocks()
	})
	group.Go(func() error {
		logger.Info("Started API", "addr", cfg.APIListenAddress)
		return api.RunApi(app, cfg, logger.With("module", "api"))
	})
	group.Go(func() error {
		return service.StartCLIServer(utils.GetEmberHome()+"/manager.sock", service.NewManager(app, cfg), ctx)
	})

	if cfg.Instrumentation.Prometheus {
		group.Go(func() error {
			app.StatisticData().Statistic(ctx, app)
			return nil
		})
		go func() {
			logger.Error((&http.Server{
				Addr:    cfg.Instrumentation.PrometheusListenAddr,
				Handler: promhttp.Handler(),
			}).ListenAndServe().Error())
		}()
	}

	defer app.Close()

	return group.Wait()
}

func ensureDirs() error {
	if err := tmOS.EnsureDir(utils.GetEmberHome()+"/config", 0777); err != nil {
		return err
	}

	if err := tmOS.EnsureDir(utils.GetEmberHome()+"/data", 0777); err != nil {
		return err
	}

	return nil
}

// deploymentDoc reads the deployment document, writing the stock one
// first when none exists yet.
func deploymentDoc() (*genesis.Deployment, error) {
	genesisFile := cfg.GenesisFile()

	if !tmOS.FileExists(genesisFile) {
		doc, err := genesis.DefaultDeployment("ember-mainnet-1")
		if err != nil {
			return nil, err
		}
		if err := doc.SaveAs(genesisFile); err != nil {
			return nil, err
		}
	}

	return genesis.DeploymentFromFile(genesisFile)
}

func enablePprof(cmd *cobra.Command, logger tmLog.Logger) error {
	pprofAddr, err := cmd.Flags().GetString("pprof-addr")
	if err != nil {
		return err
	}

	pprofMux := http.DefaultServeMux
	http.DefaultServeMux = http.NewServeMux()

	go func() {
		logger.Error((&http.Server{
			Addr:    pprofAddr,
			Handler: pprofMux,
		}).ListenAndServe().Error())
	}()

	return nil
}
