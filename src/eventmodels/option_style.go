package eventmodels

import "fmt"

// OptionStyle controls exercise timing: american contracts may exercise
// any time before expiration, european contracts only settle at or after
// expiration.
type OptionStyle string

const (
	OptionStyleAmerican OptionStyle = "american"
	OptionStyleEuropean OptionStyle = "european"
)

func (s OptionStyle) Validate() error {
	if s != OptionStyleAmerican && s != OptionStyleEuropean {
		return fmt.Errorf("OptionStyle: Validate: invalid option style: %s", s)
	}

	return nil
}

func (s OptionStyle) String() string {
	return string(s)
}
