package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/utils"
)

type RunArgs struct {
	GoEnv        string
	Host         string
	Account      string
	FeeRateBps   int64
	FeeCollector string
	FeePolicy    string
	TransferTo   string
}

type RunResult struct {
	Config *eventmodels.GovernanceConfig
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/update_governance/main.go --account gov-1 --fee-rate-bps 50",
	Short: "Read or update the governance config: fee rate, fee collector, fee policy or authority",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		host, err := cmd.Flags().GetString("host")
		if err != nil {
			log.Fatalf("error getting host: %v", err)
		}

		account, err := cmd.Flags().GetString("account")
		if err != nil {
			log.Fatalf("error getting account: %v", err)
		}

		feeRateBps, err := cmd.Flags().GetInt64("fee-rate-bps")
		if err != nil {
			log.Fatalf("error getting fee-rate-bps: %v", err)
		}

		feeCollector, err := cmd.Flags().GetString("fee-collector")
		if err != nil {
			log.Fatalf("error getting fee-collector: %v", err)
		}

		feePolicy, err := cmd.Flags().GetString("fee-policy")
		if err != nil {
			log.Fatalf("error getting fee-policy: %v", err)
		}

		transferTo, err := cmd.Flags().GetString("transfer-to")
		if err != nil {
			log.Fatalf("error getting transfer-to: %v", err)
		}

		if result, err := Run(RunArgs{
			GoEnv:        goEnv,
			Host:         host,
			Account:      account,
			FeeRateBps:   feeRateBps,
			FeeCollector: feeCollector,
			FeePolicy:    feePolicy,
			TransferTo:   transferTo,
		}); err != nil {
			log.Errorf("Error: %v", err)
		} else {
			configJSON, err := json.MarshalIndent(result.Config, "", "  ")
			if err != nil {
				log.Errorf("Failed to marshal governance config: %v", err)
			} else {
				fmt.Println(string(configJSON))
			}
		}
	},
}

func callGovernance(client *http.Client, method, url, account string, body interface{}) (*eventmodels.GovernanceConfig, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("callGovernance: marshal body: %v", err)
		}

		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("callGovernance: create request: %v", err)
	}

	httpReq.Header.Add("Content-Type", "application/json")
	httpReq.Header.Add("X-Account-ID", account)

	res, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("callGovernance: %s %s: %v", method, url, err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var apiErr struct {
			Type string `json:"type"`
			Msg  string `json:"message"`
		}

		if err := json.NewDecoder(res.Body).Decode(&apiErr); err != nil {
			return nil, fmt.Errorf("callGovernance: %s failed, http code %v", url, res.Status)
		}

		return nil, fmt.Errorf("callGovernance: %s failed, http code %v: %s", url, res.Status, apiErr.Msg)
	}

	var config eventmodels.GovernanceConfig
	if err := json.NewDecoder(res.Body).Decode(&config); err != nil {
		return nil, fmt.Errorf("callGovernance: decode config: %v", err)
	}

	return &config, nil
}

func Run(args RunArgs) (RunResult, error) {
	projectsDir := os.Getenv("PROJECTS_DIR")
	if projectsDir == "" {
		log.Fatalf("missing PROJECTS_DIR environment variable")
	}

	if err := utils.InitEnvironmentVariables(projectsDir, args.GoEnv); err != nil {
		log.Fatalf("error loading environment variables: %v", err)
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	config, err := callGovernance(client, http.MethodGet, fmt.Sprintf("%s/governance", args.Host), args.Account, nil)
	if err != nil {
		return RunResult{}, err
	}

	if args.FeeRateBps >= 0 {
		config, err = callGovernance(client, http.MethodPost, fmt.Sprintf("%s/governance/fee-rate", args.Host), args.Account, map[string]int64{"fee_rate_bps": args.FeeRateBps})
		if err != nil {
			return RunResult{}, err
		}

		log.Infof("fee rate set to %d bps (version %d)", config.FeeRateBps, config.Version)
	}

	if args.FeeCollector != "" {
		config, err = callGovernance(client, http.MethodPost, fmt.Sprintf("%s/governance/fee-collector", args.Host), args.Account, map[string]string{"fee_collector": args.FeeCollector})
		if err != nil {
			return RunResult{}, err
		}

		log.Infof("fee collector set to %s (version %d)", config.FeeCollector, config.Version)
	}

	if args.FeePolicy != "" {
		config, err = callGovernance(client, http.MethodPost, fmt.Sprintf("%s/governance/fee-policy", args.Host), args.Account, map[string]string{"fee_policy": args.FeePolicy})
		if err != nil {
			return RunResult{}, err
		}

		log.Infof("fee policy set to %s (version %d)", config.FeePolicy, config.Version)
	}

	if args.TransferTo != "" {
		config, err = callGovernance(client, http.MethodPost, fmt.Sprintf("%s/governance/transfer", args.Host), args.Account, map[string]string{"new_authority": args.TransferTo})
		if err != nil {
			return RunResult{}, err
		}

		log.Infof("authority transferred to %s (version %d)", config.Authority, config.Version)
	}

	return RunResult{Config: config}, nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")
	runCmd.PersistentFlags().String("host", "http://localhost:8080", "The base url of the escrow api.")
	runCmd.PersistentFlags().String("account", "", "The account id to act as. Updates require the governance authority.")
	runCmd.PersistentFlags().Int64("fee-rate-bps", -1, "Set the settlement fee rate in basis points.")
	runCmd.PersistentFlags().String("fee-collector", "", "Set the account that receives settlement fees.")
	runCmd.PersistentFlags().String("fee-policy", "", "Set the fee policy: payoff_only or all_disbursements.")
	runCmd.PersistentFlags().String("transfer-to", "", "Transfer governance authority to this account.")

	runCmd.MarkPersistentFlagRequired("account")

	runCmd.Execute()
}
