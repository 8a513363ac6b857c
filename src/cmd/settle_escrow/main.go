package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventservices"
	"github.com/jiaming2012/options-escrow/src/utils"
)

type RunArgs struct {
	GoEnv    string
	Host     string
	EscrowID string
	Account  string
	Spot     int64
	Symbol   string
	Scale    int64
	Early    bool
}

type RunResult struct {
	Result *eventmodels.SettlementResult
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/settle_escrow/main.go --escrow-id <uuid> --account writer-1 --spot 10550",
	Short: "Settle or early-exercise an escrow via the API, with an optional polygon reference price",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		host, err := cmd.Flags().GetString("host")
		if err != nil {
			log.Fatalf("error getting host: %v", err)
		}

		escrowID, err := cmd.Flags().GetString("escrow-id")
		if err != nil {
			log.Fatalf("error getting escrow-id: %v", err)
		}

		account, err := cmd.Flags().GetString("account")
		if err != nil {
			log.Fatalf("error getting account: %v", err)
		}

		spot, err := cmd.Flags().GetInt64("spot")
		if err != nil {
			log.Fatalf("error getting spot: %v", err)
		}

		symbol, err := cmd.Flags().GetString("symbol")
		if err != nil {
			log.Fatalf("error getting symbol: %v", err)
		}

		scale, err := cmd.Flags().GetInt64("scale")
		if err != nil {
			log.Fatalf("error getting scale: %v", err)
		}

		early, err := cmd.Flags().GetBool("early")
		if err != nil {
			log.Fatalf("error getting early: %v", err)
		}

		if result, err := Run(RunArgs{
			GoEnv:    goEnv,
			Host:     host,
			EscrowID: escrowID,
			Account:  account,
			Spot:     spot,
			Symbol:   symbol,
			Scale:    scale,
			Early:    early,
		}); err != nil {
			log.Errorf("Error: %v", err)
		} else {
			resultJSON, err := json.MarshalIndent(result.Result, "", "  ")
			if err != nil {
				log.Errorf("Failed to marshal settlement result: %v", err)
			} else {
				fmt.Println(string(resultJSON))
			}
		}
	},
}

func Run(args RunArgs) (RunResult, error) {
	projectsDir := os.Getenv("PROJECTS_DIR")
	if projectsDir == "" {
		log.Fatalf("missing PROJECTS_DIR environment variable")
	}

	if err := utils.InitEnvironmentVariables(projectsDir, args.GoEnv); err != nil {
		log.Fatalf("error loading environment variables: %v", err)
	}

	if args.Spot <= 0 && args.Symbol == "" {
		return RunResult{}, fmt.Errorf("either --spot or --symbol must be set")
	}

	ctx := context.Background()

	spotPrice := args.Spot
	if args.Symbol != "" {
		polygonAPIKey, err := utils.GetEnv("POLYGON_API_KEY")
		if err != nil {
			log.Fatalf("$POLYGON_API_KEY not set: %v", err)
		}

		fetcher := eventservices.NewReferencePriceFetcher(polygonAPIKey)

		spotPrice, err = fetcher.FetchSpotPrice(ctx, args.Symbol, time.Now().UTC(), args.Scale)
		if err != nil {
			return RunResult{}, fmt.Errorf("error fetching reference price for %s: %v", args.Symbol, err)
		}

		log.Infof("using polygon reference price %d for %s (scale %d)", spotPrice, args.Symbol, args.Scale)
	}

	action := "settle"
	if args.Early {
		action = "exercise"
	}

	url := fmt.Sprintf("%s/escrows/%s/%s", args.Host, args.EscrowID, action)

	payload, err := json.Marshal(map[string]int64{"spot_price": spotPrice})
	if err != nil {
		return RunResult{}, fmt.Errorf("error marshalling request body: %v", err)
	}

	client := http.Client{
		Timeout: 10 * time.Second,
	}

	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return RunResult{}, fmt.Errorf("error creating request: %v", err)
	}

	httpReq.Header.Add("Content-Type", "application/json")
	httpReq.Header.Add("X-Account-ID", args.Account)

	res, err := client.Do(httpReq)
	if err != nil {
		return RunResult{}, fmt.Errorf("error calling %s: %v", url, err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var apiErr struct {
			Type string `json:"type"`
			Msg  string `json:"message"`
		}

		if err := json.NewDecoder(res.Body).Decode(&apiErr); err != nil {
			return RunResult{}, fmt.Errorf("%s failed, http code %v", action, res.Status)
		}

		return RunResult{}, fmt.Errorf("%s failed, http code %v: %s", action, res.Status, apiErr.Msg)
	}

	var result eventmodels.SettlementResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return RunResult{}, fmt.Errorf("error decoding settlement result: %v", err)
	}

	return RunResult{Result: &result}, nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")
	runCmd.PersistentFlags().String("host", "http://localhost:8080", "The base url of the escrow api.")
	runCmd.PersistentFlags().String("escrow-id", "", "The escrow to settle.")
	runCmd.PersistentFlags().String("account", "", "The account id to act as. Must be a party to the escrow.")
	runCmd.PersistentFlags().Int64("spot", 0, "The settlement spot price in fixed-point units.")
	runCmd.PersistentFlags().String("symbol", "", "Fetch the spot price from polygon for this symbol instead of --spot.")
	runCmd.PersistentFlags().Int64("scale", 100, "Fixed-point scale applied to the polygon price, e.g. 100 for cents.")
	runCmd.PersistentFlags().Bool("early", false, "Exercise before expiration instead of settling. American style only.")

	runCmd.MarkPersistentFlagRequired("escrow-id")
	runCmd.MarkPersistentFlagRequired("account")

	runCmd.Execute()
}
