package eventpubsub

import (
	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
)

var bus EventBus.Bus

func Init() {
	bus = EventBus.New()
}

// PublishEvent fans an event out to in-process subscribers. The bus is a
// side channel for notifiers and workers; the escrow registry never
// depends on it for correctness.
func PublishEvent(publisherName string, topic eventmodels.EventName, event interface{}) {
	log.Debugf("[%v] published to topic %s", publisherName, topic)

	bus.Publish(string(topic), event)
}

func PublishError(publisherName string, err error) {
	log.Errorf("[%v] %v", publisherName, err)

	bus.Publish(ErrorTopic, err)
}

func Subscribe(subscriberName string, topic eventmodels.EventName, callbackFn interface{}) {
	if err := bus.SubscribeAsync(string(topic), callbackFn, false); err != nil {
		log.Errorf("[%v] subscribe error: %v", subscriberName, err)
		return
	}

	log.Infof("[%v] subscribed to topic %s", subscriberName, topic)
}

func SubscribeError(subscriberName string, callbackFn interface{}) {
	if err := bus.SubscribeAsync(ErrorTopic, callbackFn, false); err != nil {
		log.Errorf("[%v] subscribe error: %v", subscriberName, err)
		return
	}

	log.Infof("[%v] subscribed to topic %s", subscriberName, ErrorTopic)
}
