package eventmodels

type SavedEventParameters struct {
	StreamName    StreamName
	EventName     EventName
	SchemaVersion int
}

type SavedEvent interface {
	GetSavedEventParameters() SavedEventParameters
	GetMetaData() *MetaData
}
