package dbutils

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/escrow-api/models"
	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// CreateGovernanceStore restores governance from the database when a
// record exists, otherwise bootstraps from the supplied configuration
// and persists it so the next restart finds version 1 in place.
func CreateGovernanceStore(dbService models.IDatabaseService, bootstrap *eventmodels.GovernanceConfig) (*models.GovernanceStore, error) {
	if dbService == nil {
		return nil, fmt.Errorf("CreateGovernanceStore: database service is nil")
	}

	stored, found, err := dbService.FetchGovernanceRecord()
	if err != nil {
		return nil, fmt.Errorf("CreateGovernanceStore: %w", err)
	}

	if found {
		store, err := models.NewGovernanceStore(stored)
		if err != nil {
			return nil, fmt.Errorf("CreateGovernanceStore: failed to restore governance: %w", err)
		}

		log.Infof("restored governance config version %d, authority %s", stored.Version, stored.Authority)

		return store, nil
	}

	store, err := models.NewGovernanceStore(bootstrap)
	if err != nil {
		return nil, fmt.Errorf("CreateGovernanceStore: failed to bootstrap governance: %w", err)
	}

	config := store.Snapshot()
	if err := dbService.SaveGovernanceRecord(config); err != nil {
		return nil, fmt.Errorf("CreateGovernanceStore: failed to persist bootstrap governance: %w", err)
	}

	log.Infof("initialized governance config: authority %s, fee rate %d bps, collector %s, policy %s", config.Authority, config.FeeRateBps, config.FeeCollector, config.FeePolicy)

	return store, nil
}
