package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"time"

	tmjson "github.com/tendermint/tendermint/libs/json"
	tmos "github.com/tendermint/tendermint/libs/os"

	"github.com/EmberTeam/ember-go-engine/core/types"
	"github.com/EmberTeam/ember-go-engine/formula"
	"github.com/EmberTeam/ember-go-engine/helpers"
)

const MaxDeploymentIDLen = 50

// Deployment is the document an engine instance boots from. AppState
// carries the initial types.AppState and InitialHeight pins the height
// the deployed state is recorded at.
type Deployment struct {
	DeploymentTime time.Time       `json:"deployment_time"`
	DeploymentID   string          `json:"deployment_id"`
	InitialHeight  uint64          `json:"initial_height"`
	AppState       json.RawMessage `json:"app_state,omitempty"`
}

// SaveAs is a utility method for saving Deployment as a JSON file.
func (doc *Deployment) SaveAs(file string) error {
	docBytes, err := tmjson.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return tmos.WriteFile(file, docBytes, 0644)
}

// ValidateAndComplete checks that all necessary fields are present
// and fills in defaults for optional fields left empty.
func (doc *Deployment) ValidateAndComplete() error {
	if doc.DeploymentID == "" {
		return errors.New("deployment doc must include non-empty deployment_id")
	}
	if len(doc.DeploymentID) > MaxDeploymentIDLen {
		return fmt.Errorf("deployment_id in deployment doc is too long (max: %d)", MaxDeploymentIDLen)
	}

	if doc.InitialHeight == 0 {
		doc.InitialHeight = 1
	}

	if doc.DeploymentTime.IsZero() {
		doc.DeploymentTime = time.Now().Round(0).UTC()
	}

	if len(doc.AppState) > 0 {
		appState := new(types.AppState)
		if err := tmjson.Unmarshal(doc.AppState, appState); err != nil {
			return fmt.Errorf("invalid app_state: %w", err)
		}
		if err := appState.Verify(); err != nil {
			return fmt.Errorf("invalid app_state: %w", err)
		}
	}

	return nil
}

// DefaultDeployment builds the stock deployment document: a sqrt curve
// collecting 500 EMB before graduation, a 1% trade fee, and 80% of the
// collected value earmarked for venue liquidity. No markets exist at
// deployment; they are created by trades.
func DefaultDeployment(deploymentID string) (*Deployment, error) {
	appState := types.AppState{
		Note:        "",
		StartHeight: 1,
		Params: types.EngineParams{
			FeeBps:               100,
			CooldownSeconds:      1,
			MaxTradesPerBlock:    10,
			MaxTradeValue:        helpers.EmbToSpark(big.NewInt(100000)).String(),
			MaxTradeTokens:       "0",
			LiquidityFractionBps: 8000,
			MinLiquidityValue:    helpers.EmbToSpark(big.NewInt(1)).String(),
			MinLiquidityTokens:   helpers.TokensToUnits(big.NewInt(1)).String(),
			FeeSink:              types.HexToAddress("Exa83d8ebee16ec154ea314c4ed00bd8b16ecf2242"),
			Curve: formula.Calibration{
				Model:               "sqrt",
				InitialPrice:        "0.00003",
				VirtualReserve:      "30",
				VirtualSupply:       "1000000",
				GraduationThreshold: "500",
			},
		},
	}

	appStateJSON, err := tmjson.Marshal(appState)
	if err != nil {
		return nil, err
	}

	doc := Deployment{
		DeploymentTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DeploymentID:   deploymentID,
		InitialHeight:  1,
		AppState:       appStateJSON,
	}

	if err := doc.ValidateAndComplete(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// DeploymentFromJSON unmarshalls JSON data into a Deployment.
func DeploymentFromJSON(jsonBlob []byte) (*Deployment, error) {
	doc := Deployment{}
	if err := tmjson.Unmarshal(jsonBlob, &doc); err != nil {
		return nil, err
	}

	if err := doc.ValidateAndComplete(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// DeploymentFromFile reads JSON data from a file and unmarshalls it
// into a Deployment.
func DeploymentFromFile(docFile string) (*Deployment, error) {
	jsonBlob, err := ioutil.ReadFile(docFile)
	if err != nil {
		return nil, fmt.Errorf("couldn't read deployment file: %w", err)
	}
	doc, err := DeploymentFromJSON(jsonBlob)
	if err != nil {
		return nil, fmt.Errorf("error reading deployment doc at %v: %w", docFile, err)
	}
	return doc, nil
}
