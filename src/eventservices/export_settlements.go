package eventservices

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/utils"
)

// ExportSettlements writes every settlement in the escrows stream to a
// csv file, optionally restricted to a settled-at window. An existing
// file for the same window is reused.
func ExportSettlements(args eventmodels.ExportSettlementsRunArgs) (eventmodels.ExportSettlementsRunOutput, error) {
	projectsDir := os.Getenv("PROJECTS_DIR")
	if projectsDir == "" {
		panic("missing PROJECTS_DIR environment variable")
	}

	ctx := context.Background()

	var filename string
	if args.StartsAt.IsZero() && args.EndsAt.IsZero() {
		filename = "settlements-all.csv"
	} else {
		filename = fmt.Sprintf("settlements-from-%s-to-%s.csv", args.StartsAt.Format("20060102_150405"), args.EndsAt.Format("20060102_150405"))
	}

	outdir := path.Join(projectsDir, "options-escrow", "data", "exports", filename)

	// check if file exists
	if _, err := os.Stat(outdir); err == nil {
		log.Infof("Export file %s already exists", outdir)
		return eventmodels.ExportSettlementsRunOutput{
			ExportedFilepath: outdir,
		}, nil
	}

	log.Infof("Exporting settlements to csv")

	if err := utils.InitEnvironmentVariables(projectsDir, args.GoEnv); err != nil {
		return eventmodels.ExportSettlementsRunOutput{}, fmt.Errorf("error initializing environment variables: %v", err)
	}

	settings, err := esdb.ParseConnectionString(os.Getenv("EVENTSTOREDB_URL"))
	if err != nil {
		return eventmodels.ExportSettlementsRunOutput{}, fmt.Errorf("error parsing connection string: %v", err)
	}

	esdbClient, err := esdb.NewClient(settings)
	if err != nil {
		return eventmodels.ExportSettlementsRunOutput{}, fmt.Errorf("error creating new client: %v", err)
	}

	recorded, err := FetchAllEvents(ctx, esdbClient, eventmodels.EscrowsStream)
	if err != nil {
		return eventmodels.ExportSettlementsRunOutput{}, fmt.Errorf("error fetching escrow events: %v", err)
	}

	log.Infof("Fetched %d escrow events", len(recorded))

	var rows []*eventmodels.SettlementCSVRow
	for _, event := range recorded {
		if eventmodels.EventName(event.EventType) != eventmodels.EscrowSettledEventName {
			continue
		}

		var settled eventmodels.EscrowSettledEvent
		if err := json.Unmarshal(event.Data, &settled); err != nil {
			return eventmodels.ExportSettlementsRunOutput{}, fmt.Errorf("error unmarshalling settled event %d: %v", event.EventNumber, err)
		}

		if !args.StartsAt.IsZero() && settled.SettledAt.Before(args.StartsAt) {
			continue
		}

		if !args.EndsAt.IsZero() && settled.SettledAt.After(args.EndsAt) {
			continue
		}

		rows = append(rows, eventmodels.NewSettlementCSVRow(settled.ToResult()))
	}

	if len(rows) == 0 {
		return eventmodels.ExportSettlementsRunOutput{}, fmt.Errorf("no settlements to export")
	}

	dir := filepath.Dir(outdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	file, err := os.Create(outdir)
	if err != nil {
		return eventmodels.ExportSettlementsRunOutput{}, fmt.Errorf("error creating CSV file: %v", err)
	}

	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return eventmodels.ExportSettlementsRunOutput{}, fmt.Errorf("error marshalling file: %v", err)
	}

	log.Infof("Exported %d settlements to %s", len(rows), outdir)

	return eventmodels.ExportSettlementsRunOutput{
		ExportedFilepath: outdir,
		SettlementCount:  len(rows),
	}, nil
}
