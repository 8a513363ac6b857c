package eventmodels

// OptionMoneyness classifies a contract against a reference price. A spot
// exactly equal to the strike is out of the money: settlement pays nothing
// on equality.
type OptionMoneyness string

const (
	OptionMoneynessInTheMoney    OptionMoneyness = "in_the_money"
	OptionMoneynessOutOfTheMoney OptionMoneyness = "out_of_the_money"
)
