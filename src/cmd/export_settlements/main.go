package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventservices"
)

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/export_settlements/main.go --from 2025-01-01T00:00:00Z",
	Short: "Export settled escrows from the event store to a csv file",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		from, err := cmd.Flags().GetString("from")
		if err != nil {
			log.Fatalf("error getting from: %v", err)
		}

		to, err := cmd.Flags().GetString("to")
		if err != nil {
			log.Fatalf("error getting to: %v", err)
		}

		var startsAt, endsAt time.Time

		if from != "" {
			startsAt, err = time.Parse(time.RFC3339, from)
			if err != nil {
				log.Fatalf("error parsing from as RFC3339: %v", err)
			}
		}

		if to != "" {
			endsAt, err = time.Parse(time.RFC3339, to)
			if err != nil {
				log.Fatalf("error parsing to as RFC3339: %v", err)
			}
		}

		if result, err := eventservices.ExportSettlements(eventmodels.ExportSettlementsRunArgs{
			StartsAt: startsAt,
			EndsAt:   endsAt,
			GoEnv:    goEnv,
		}); err != nil {
			log.Errorf("Error: %v", err)
		} else {
			fmt.Printf("Exported %d settlements to %s\n", result.SettlementCount, result.ExportedFilepath)
		}
	},
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")
	runCmd.PersistentFlags().String("from", "", "Only export settlements at or after this RFC3339 timestamp.")
	runCmd.PersistentFlags().String("to", "", "Only export settlements at or before this RFC3339 timestamp.")

	runCmd.Execute()
}
