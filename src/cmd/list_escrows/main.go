package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jiaming2012/options-escrow/src/data"
	"github.com/jiaming2012/options-escrow/src/dbutils"
	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/utils"
)

type RunArgs struct {
	GoEnv   string
	Status  string
	Account string
	Asset   string
}

type RunResult struct {
	Escrows []*eventmodels.Escrow
}

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/list_escrows/main.go --status collateralized",
	Short: "List escrow records from the database, optionally filtered by status, account or collateral asset",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		status, err := cmd.Flags().GetString("status")
		if err != nil {
			log.Fatalf("error getting status: %v", err)
		}

		account, err := cmd.Flags().GetString("account")
		if err != nil {
			log.Fatalf("error getting account: %v", err)
		}

		asset, err := cmd.Flags().GetString("asset")
		if err != nil {
			log.Fatalf("error getting asset: %v", err)
		}

		if result, err := Run(RunArgs{
			GoEnv:   goEnv,
			Status:  status,
			Account: account,
			Asset:   asset,
		}); err != nil {
			log.Errorf("Error: %v", err)
		} else {
			fmt.Println(renderEscrowTable(result.Escrows))
		}
	},
}

func renderEscrowTable(escrows []*eventmodels.Escrow) string {
	display := &strings.Builder{}
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(display)

	table.SetHeader([]string{"ID", "Type", "Style", "Strike", "Notional", "Asset", "Collateral", "Status", "Expires"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnSeparator("")
	display.WriteString(fmt.Sprintf("Escrows (%d):\n", len(escrows)))

	for _, escrow := range escrows {
		collateral := fmt.Sprintf("%s / %s", p.Sprintf("%d", escrow.CollateralAmount), p.Sprintf("%d", escrow.MaxCollateral))

		table.Append([]string{
			escrow.ID.String(),
			string(escrow.OptionType),
			string(escrow.Style),
			p.Sprintf("%d", escrow.StrikePrice),
			p.Sprintf("%d", escrow.Notional),
			escrow.CollateralAsset.String(),
			collateral,
			escrow.Status.String(),
			escrow.ExpirationTime.Format("2006-01-02 15:04:05"),
		})
	}

	table.Render()
	return display.String()
}

func Run(args RunArgs) (RunResult, error) {
	projectsDir := os.Getenv("PROJECTS_DIR")
	if projectsDir == "" {
		log.Fatalf("missing PROJECTS_DIR environment variable")
	}

	if err := utils.InitEnvironmentVariables(projectsDir, args.GoEnv); err != nil {
		log.Fatalf("error loading environment variables: %v", err)
	}

	postgresHost, err := utils.GetEnv("POSTGRES_HOST")
	if err != nil {
		log.Fatalf("$POSTGRES_HOST not set: %v", err)
	}

	postgresPort, err := utils.GetEnv("POSTGRES_PORT")
	if err != nil {
		log.Fatalf("$POSTGRES_PORT not set: %v", err)
	}

	postgresUser, err := utils.GetEnv("POSTGRES_USER")
	if err != nil {
		log.Fatalf("$POSTGRES_USER not set: %v", err)
	}

	postgresPassword, err := utils.GetEnv("POSTGRES_PASSWORD")
	if err != nil {
		log.Fatalf("$POSTGRES_PASSWORD not set: %v", err)
	}

	postgresDb, err := utils.GetEnv("POSTGRES_DB")
	if err != nil {
		log.Fatalf("$POSTGRES_DB not set: %v", err)
	}

	db, err := dbutils.InitPostgres(postgresHost, postgresPort, postgresUser, postgresPassword, postgresDb)
	if err != nil {
		return RunResult{}, fmt.Errorf("error connecting to postgres: %v", err)
	}

	dbService := data.NewDatabaseService(db)

	escrows, err := dbService.FetchEscrowRecords()
	if err != nil {
		return RunResult{}, fmt.Errorf("error fetching escrow records: %v", err)
	}

	filter := &models.EscrowFilter{
		Status:  eventmodels.EscrowStatus(args.Status),
		Account: eventmodels.AccountID(args.Account),
		Asset:   eventmodels.AssetSymbol(args.Asset),
	}

	if err := filter.Validate(); err != nil {
		return RunResult{}, fmt.Errorf("invalid filter: %v", err)
	}

	var filtered []*eventmodels.Escrow
	for _, escrow := range escrows {
		if filter.Matches(escrow) {
			filtered = append(filtered, escrow)
		}
	}

	return RunResult{Escrows: filtered}, nil
}

func main() {
	runCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")
	runCmd.PersistentFlags().String("status", "", "Only list escrows with this status: created, collateralized, settled or cancelled.")
	runCmd.PersistentFlags().String("account", "", "Only list escrows where this account is the initializer or counterparty.")
	runCmd.PersistentFlags().String("asset", "", "Only list escrows collateralized in this asset.")

	runCmd.Execute()
}
