package cmd

import (
	"crypto/sha256"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	tmjson "github.com/tendermint/tendermint/libs/json"

	"github.com/EmberTeam/ember-go-engine/cmd/utils"
	"github.com/EmberTeam/ember-go-engine/core/appdb"
	"github.com/EmberTeam/ember-go-engine/core/state"
	"github.com/EmberTeam/ember-go-engine/genesis"
)

var ExportCommand = &cobra.Command{
	Use:   "export",
	Short: "Export the engine state as a deployment document",
	RunE:  export,
}

const genesisPath = "genesis.json"

func export(cmd *cobra.Command, args []string) error {
	height, err := cmd.Flags().GetUint64("height")
	if err != nil {
		log.Panicf("Cannot parse height: %s", err)
	}

	indent, err := cmd.Flags().GetBool("indent")
	if err != nil {
		log.Panicf("Cannot parse indent: %s", err)
	}

	log.Println("Start exporting...")

	homeDir, err := cmd.Flags().GetString("home-dir")
	if err != nil {
		return err
	}
	storages := utils.NewStorage(homeDir, "")

	ldb, err := storages.InitStateLevelDB("data/state", nil)
	if err != nil {
		log.Panicf("Cannot load db: %s", err)
	}

	db := appdb.NewAppDB(storages.GetEmberHome(), cfg)
	if height == 0 {
		height = db.GetLastHeight()
	}

	currentState, err := state.NewCheckStateAtHeight(height, ldb)
	if err != nil {
		log.Panicf("Cannot new state at given height: %s, last available height %d", err, db.GetLastHeight())
	}

	exportTimeStart := time.Now()
	appState := currentState.Export()
	log.Printf("State has been exported. Took %s\n", time.Since(exportTimeStart))

	if err := appState.Verify(); err != nil {
		log.Fatalf("Failed to validate: %s\n", err)
	}
	log.Printf("Verify state OK\n")

	appState.StartHeight = height

	var jsonBytes []byte
	if indent {
		jsonBytes, err = tmjson.MarshalIndent(appState, "", "	")
	} else {
		jsonBytes, err = tmjson.Marshal(appState)
	}
	if err != nil {
		log.Panicf("Cannot marshal state to json: %s", err)
	}
	log.Printf("Marshal OK\n")

	doc := genesis.Deployment{
		DeploymentTime: time.Now().Round(0).UTC(),
		DeploymentID:   "ember-export",
		InitialHeight:  height,
		AppState:       jsonBytes,
	}

	if err := doc.ValidateAndComplete(); err != nil {
		log.Panicf("Failed to validate: %s", err)
	}
	log.Printf("Validate deployment OK\n")

	if err := doc.SaveAs(genesisPath); err != nil {
		log.Panicf("Failed to save genesis file: %s", err)
	}

	hash := getFileSha256Hash(genesisPath)
	log.Printf("Finish with sha256 hash: \n%x\n", hash)

	return nil
}

func getFileSha256Hash(file string) []byte {
	f, err := os.Open(file)
	if err != nil {
		log.Fatal(err)
	}

	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		log.Fatal(err)
	}

	return h.Sum(nil)
}
