package eventmodels

type StreamName string

const (
	EscrowsStream    StreamName = "escrows"
	GovernanceStream StreamName = "governance"
)
