package sheets

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/sheets/v4"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

const settlementsSheetName = "Settlements"

var mu sync.Mutex

func settlementToRow(result *eventmodels.SettlementResult) []interface{} {
	return []interface{}{
		result.SettledAt.Format(time.RFC3339),
		result.EscrowID.String(),
		string(result.Outcome),
		strconv.FormatInt(result.SpotPrice, 10),
		strconv.FormatInt(result.GrossPayoff, 10),
		strconv.FormatInt(result.PayoffNet, 10),
		strconv.FormatInt(result.FeeAmount, 10),
		strconv.FormatInt(result.ResidualNet, 10),
		string(result.PayoffRecipient),
		string(result.FeeCollector),
		strconv.FormatUint(result.GovernanceVersion, 10),
		strconv.FormatBool(result.EarlyExercise),
	}
}

func stringCell(row []interface{}, index int) (string, error) {
	if index >= len(row) {
		return "", fmt.Errorf("row has %d cells, wanted index %d", len(row), index)
	}

	value, ok := row[index].(string)
	if !ok {
		return "", fmt.Errorf("failed to parse row[%d]=%v", index, row[index])
	}

	return value, nil
}

func int64Cell(row []interface{}, index int) (int64, error) {
	value, err := stringCell(row, index)
	if err != nil {
		return 0, err
	}

	return strconv.ParseInt(value, 10, 64)
}

func settlementFromRow(row []interface{}) (*eventmodels.SettlementResult, error) {
	settledAtStr, err := stringCell(row, 0)
	if err != nil {
		return nil, err
	}

	settledAt, err := time.Parse(time.RFC3339, settledAtStr)
	if err != nil {
		return nil, err
	}

	escrowIDStr, err := stringCell(row, 1)
	if err != nil {
		return nil, err
	}

	escrowID, err := uuid.Parse(escrowIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse escrow id %s: %w", escrowIDStr, err)
	}

	outcome, err := stringCell(row, 2)
	if err != nil {
		return nil, err
	}

	spotPrice, err := int64Cell(row, 3)
	if err != nil {
		return nil, err
	}

	grossPayoff, err := int64Cell(row, 4)
	if err != nil {
		return nil, err
	}

	payoffNet, err := int64Cell(row, 5)
	if err != nil {
		return nil, err
	}

	feeAmount, err := int64Cell(row, 6)
	if err != nil {
		return nil, err
	}

	residualNet, err := int64Cell(row, 7)
	if err != nil {
		return nil, err
	}

	payoffRecipient, err := stringCell(row, 8)
	if err != nil {
		return nil, err
	}

	feeCollector, err := stringCell(row, 9)
	if err != nil {
		return nil, err
	}

	governanceVersionStr, err := stringCell(row, 10)
	if err != nil {
		return nil, err
	}

	governanceVersion, err := strconv.ParseUint(governanceVersionStr, 10, 64)
	if err != nil {
		return nil, err
	}

	earlyExerciseStr, err := stringCell(row, 11)
	if err != nil {
		return nil, err
	}

	earlyExercise, err := strconv.ParseBool(earlyExerciseStr)
	if err != nil {
		return nil, err
	}

	return &eventmodels.SettlementResult{
		EscrowID:          escrowID,
		Outcome:           eventmodels.SettlementOutcome(outcome),
		SpotPrice:         spotPrice,
		GrossPayoff:       grossPayoff,
		PayoffNet:         payoffNet,
		FeeAmount:         feeAmount,
		ResidualNet:       residualNet,
		PayoffRecipient:   eventmodels.AccountID(payoffRecipient),
		FeeCollector:      eventmodels.AccountID(feeCollector),
		GovernanceVersion: governanceVersion,
		EarlyExercise:     earlyExercise,
		SettledAt:         settledAt,
	}, nil
}

func AppendSettlement(ctx context.Context, srv *sheets.Service, spreadsheetId string, result *eventmodels.SettlementResult) error {
	mu.Lock()
	defer mu.Unlock()

	values := [][]interface{}{settlementToRow(result)}

	return AppendRows(ctx, srv, spreadsheetId, settlementsSheetName, values)
}

func FetchSettlements(ctx context.Context, srv *sheets.Service, spreadsheetId string) ([]*eventmodels.SettlementResult, error) {
	mu.Lock()
	defer mu.Unlock()

	fetched, err := fetchRows(ctx, srv, spreadsheetId, settlementsSheetName, "2:10000")
	if err != nil {
		return nil, err
	}

	settlements := make([]*eventmodels.SettlementResult, 0, len(fetched))

	for _, row := range fetched {
		settlement, err := settlementFromRow(row)
		if err != nil {
			return nil, err
		}

		settlements = append(settlements, settlement)
	}

	return settlements, nil
}
