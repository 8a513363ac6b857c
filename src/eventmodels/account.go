package eventmodels

import "fmt"

// AccountID identifies a party on the custody ledger. Signature
// verification happens upstream; the engine only performs capability
// checks against the identity it is handed.
type AccountID string

func (a AccountID) Validate() error {
	if a == "" {
		return fmt.Errorf("AccountID: Validate: account id is empty")
	}

	return nil
}

func (a AccountID) String() string {
	return string(a)
}

type AssetSymbol string

func (s AssetSymbol) Validate() error {
	if s == "" {
		return fmt.Errorf("AssetSymbol: Validate: asset symbol is empty")
	}

	return nil
}

func (s AssetSymbol) String() string {
	return string(s)
}
