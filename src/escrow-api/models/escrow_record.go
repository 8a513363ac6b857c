package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

// EscrowRecord is the durable projection of an escrow, keyed by the
// escrow id. The registry remains the source of truth for live state;
// records exist for lookups, reporting and restarts.
type EscrowRecord struct {
	gorm.Model
	EscrowID         uuid.UUID `gorm:"column:escrow_id;type:uuid;uniqueIndex;not null"`
	Initializer      string    `gorm:"column:initializer;type:text;not null"`
	Counterparty     string    `gorm:"column:counterparty;type:text"`
	OptionType       string    `gorm:"column:option_type;type:text;not null"`
	Style            string    `gorm:"column:style;type:text;not null"`
	StrikePrice      int64     `gorm:"column:strike_price;type:bigint;not null"`
	Notional         int64     `gorm:"column:notional;type:bigint;not null"`
	ExpirationTime   time.Time `gorm:"column:expiration_time;type:timestamptz;not null"`
	CollateralAsset  string    `gorm:"column:collateral_asset;type:text;not null"`
	CollateralAmount int64     `gorm:"column:collateral_amount;type:bigint;not null"`
	MaxCollateral    int64     `gorm:"column:max_collateral;type:bigint;not null"`
	Status           string    `gorm:"column:status;type:text;not null"`
	CreatedOn        time.Time `gorm:"column:created_on;type:timestamptz;not null"`
}

func NewEscrowRecord(escrow *eventmodels.Escrow) *EscrowRecord {
	return &EscrowRecord{
		EscrowID:         escrow.ID,
		Initializer:      escrow.Initializer.String(),
		Counterparty:     escrow.Counterparty.String(),
		OptionType:       string(escrow.OptionType),
		Style:            string(escrow.Style),
		StrikePrice:      escrow.StrikePrice,
		Notional:         escrow.Notional,
		ExpirationTime:   escrow.ExpirationTime,
		CollateralAsset:  escrow.CollateralAsset.String(),
		CollateralAmount: escrow.CollateralAmount,
		MaxCollateral:    escrow.MaxCollateral,
		Status:           escrow.Status.String(),
		CreatedOn:        escrow.CreatedAt,
	}
}

func (rec *EscrowRecord) ToEscrow() (*eventmodels.Escrow, error) {
	escrow := &eventmodels.Escrow{
		ID:               rec.EscrowID,
		Initializer:      eventmodels.AccountID(rec.Initializer),
		Counterparty:     eventmodels.AccountID(rec.Counterparty),
		OptionType:       eventmodels.OptionType(rec.OptionType),
		Style:            eventmodels.OptionStyle(rec.Style),
		StrikePrice:      rec.StrikePrice,
		Notional:         rec.Notional,
		ExpirationTime:   rec.ExpirationTime,
		CollateralAsset:  eventmodels.AssetSymbol(rec.CollateralAsset),
		CollateralAmount: rec.CollateralAmount,
		MaxCollateral:    rec.MaxCollateral,
		Status:           eventmodels.EscrowStatus(rec.Status),
		CreatedAt:        rec.CreatedOn,
	}

	if err := escrow.Validate(); err != nil {
		return nil, fmt.Errorf("EscrowRecord.ToEscrow: %w", err)
	}

	return escrow, nil
}

// SettlementRecord stores one committed settlement outcome per escrow.
type SettlementRecord struct {
	gorm.Model
	EscrowID          uuid.UUID `gorm:"column:escrow_id;type:uuid;uniqueIndex;not null"`
	Outcome           string    `gorm:"column:outcome;type:text;not null"`
	SpotPrice         int64     `gorm:"column:spot_price;type:bigint;not null"`
	GrossPayoff       int64     `gorm:"column:gross_payoff;type:bigint;not null"`
	PayoffNet         int64     `gorm:"column:payoff_net;type:bigint;not null"`
	ResidualNet       int64     `gorm:"column:residual_net;type:bigint;not null"`
	FeeAmount         int64     `gorm:"column:fee_amount;type:bigint;not null"`
	PayoffRecipient   string    `gorm:"column:payoff_recipient;type:text"`
	FeeCollector      string    `gorm:"column:fee_collector;type:text;not null"`
	GovernanceVersion uint64    `gorm:"column:governance_version;type:bigint;not null"`
	EarlyExercise     bool      `gorm:"column:early_exercise;not null"`
	SettledAt         time.Time `gorm:"column:settled_at;type:timestamptz;not null"`
}

func NewSettlementRecord(result *eventmodels.SettlementResult) *SettlementRecord {
	return &SettlementRecord{
		EscrowID:          result.EscrowID,
		Outcome:           string(result.Outcome),
		SpotPrice:         result.SpotPrice,
		GrossPayoff:       result.GrossPayoff,
		PayoffNet:         result.PayoffNet,
		ResidualNet:       result.ResidualNet,
		FeeAmount:         result.FeeAmount,
		PayoffRecipient:   result.PayoffRecipient.String(),
		FeeCollector:      result.FeeCollector.String(),
		GovernanceVersion: result.GovernanceVersion,
		EarlyExercise:     result.EarlyExercise,
		SettledAt:         result.SettledAt,
	}
}

func (rec *SettlementRecord) ToResult() *eventmodels.SettlementResult {
	return &eventmodels.SettlementResult{
		EscrowID:          rec.EscrowID,
		Outcome:           eventmodels.SettlementOutcome(rec.Outcome),
		SpotPrice:         rec.SpotPrice,
		GrossPayoff:       rec.GrossPayoff,
		PayoffNet:         rec.PayoffNet,
		ResidualNet:       rec.ResidualNet,
		FeeAmount:         rec.FeeAmount,
		PayoffRecipient:   eventmodels.AccountID(rec.PayoffRecipient),
		FeeCollector:      eventmodels.AccountID(rec.FeeCollector),
		GovernanceVersion: rec.GovernanceVersion,
		EarlyExercise:     rec.EarlyExercise,
		SettledAt:         rec.SettledAt,
	}
}

// GovernanceRecord is the singleton governance row, versioned so a
// restart restores the latest accepted configuration.
type GovernanceRecord struct {
	gorm.Model
	Singleton    bool   `gorm:"column:singleton;uniqueIndex;not null;default:true"`
	Authority    string `gorm:"column:authority;type:text;not null"`
	FeeRateBps   int64  `gorm:"column:fee_rate_bps;type:bigint;not null"`
	FeeCollector string `gorm:"column:fee_collector;type:text;not null"`
	FeePolicy    string `gorm:"column:fee_policy;type:text;not null"`
	Version      uint64 `gorm:"column:version;type:bigint;not null"`
}

func NewGovernanceRecord(config *eventmodels.GovernanceConfig) *GovernanceRecord {
	return &GovernanceRecord{
		Singleton:    true,
		Authority:    config.Authority.String(),
		FeeRateBps:   config.FeeRateBps,
		FeeCollector: config.FeeCollector.String(),
		FeePolicy:    string(config.FeePolicy),
		Version:      config.Version,
	}
}

func (rec *GovernanceRecord) ToConfig() (*eventmodels.GovernanceConfig, error) {
	config := &eventmodels.GovernanceConfig{
		Authority:    eventmodels.AccountID(rec.Authority),
		FeeRateBps:   rec.FeeRateBps,
		FeeCollector: eventmodels.AccountID(rec.FeeCollector),
		FeePolicy:    eventmodels.FeePolicy(rec.FeePolicy),
		Version:      rec.Version,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("GovernanceRecord.ToConfig: %w", err)
	}

	return config, nil
}
