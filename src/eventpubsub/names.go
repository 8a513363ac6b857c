package eventpubsub

const (
	ErrorTopic = "DefaultError"
)
