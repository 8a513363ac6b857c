package eventmodels

import "time"

type ExportSettlementsRunArgs struct {
	StartsAt time.Time
	EndsAt   time.Time
	GoEnv    string
}

type ExportSettlementsRunOutput struct {
	ExportedFilepath string
	SettlementCount  int
}
