package eventmodels

type BaseEscrowEvent struct {
	Meta *MetaData `json:"meta"`
}

func (e *BaseEscrowEvent) GetMetaData() *MetaData {
	if e.Meta == nil {
		e.Meta = &MetaData{}
	}

	return e.Meta
}

func (e *BaseEscrowEvent) SetMetaData(meta *MetaData) {
	e.Meta = meta
}
