package eventmodels

import "github.com/google/uuid"

type MetaData struct {
	RequestID     uuid.UUID     `json:"request_id"`
	EventStreamID EventStreamID `json:"event_stream_id"`
	SchemaVersion int           `json:"schema_version"`
}

func (m *MetaData) SetEventStreamID(id EventStreamID) {
	m.EventStreamID = id
}

func (m *MetaData) SetSchemaVersion(version int) {
	m.SchemaVersion = version
}
