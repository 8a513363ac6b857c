package router

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/kataras/go-events"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/options-escrow/src/eventmodels"
	"github.com/jiaming2012/options-escrow/src/eventpubsub"
)

const streamTopic events.EventName = "escrow-api.stream"

// streamTopics lists the bus topics mirrored onto the websocket.
var streamTopics = []eventmodels.EventName{
	eventmodels.EscrowCreatedEventName,
	eventmodels.CollateralDepositedEventName,
	eventmodels.EscrowSettledEventName,
	eventmodels.EscrowCancelledEventName,
	eventmodels.GovernanceUpdatedEventName,
}

type StreamMessage struct {
	Type eventmodels.EventName `json:"type"`
	Data interface{}           `json:"data"`
}

// EscrowStream fans lifecycle events out to websocket subscribers. Bus
// topics feed a go-events emitter; one emitter listener pushes onto each
// connection's buffered send channel. Slow consumers drop messages
// rather than stall settlement announcements.
type EscrowStream struct {
	emitter events.EventEmmiter

	mu    sync.Mutex
	conns map[*websocket.Conn]chan StreamMessage

	upgrader websocket.Upgrader
}

func NewEscrowStream() *EscrowStream {
	stream := &EscrowStream{
		emitter: events.New(),
		conns:   make(map[*websocket.Conn]chan StreamMessage),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	stream.emitter.On(streamTopic, stream.fanout)

	return stream
}

// Start bridges the in-process bus onto the emitter.
func (s *EscrowStream) Start() {
	for _, topic := range streamTopics {
		topic := topic

		eventpubsub.Subscribe("EscrowStream", topic, func(event interface{}) {
			s.emitter.Emit(streamTopic, StreamMessage{Type: topic, Data: event})
		})
	}
}

func (s *EscrowStream) fanout(payload ...interface{}) {
	if len(payload) == 0 {
		return
	}

	msg, ok := payload[0].(StreamMessage)
	if !ok {
		log.Warnf("EscrowStream: dropping payload of type %T", payload[0])
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for conn, sendCh := range s.conns {
		select {
		case sendCh <- msg:
		default:
			log.Warnf("EscrowStream: dropping %s for slow consumer %s", msg.Type, conn.RemoteAddr())
		}
	}
}

func (s *EscrowStream) register(conn *websocket.Conn) chan StreamMessage {
	sendCh := make(chan StreamMessage, 64)

	s.mu.Lock()
	s.conns[conn] = sendCh
	s.mu.Unlock()

	return sendCh
}

func (s *EscrowStream) unregister(conn *websocket.Conn) {
	s.mu.Lock()
	sendCh, found := s.conns[conn]
	delete(s.conns, conn)
	s.mu.Unlock()

	if found {
		close(sendCh)
	}
}

func (s *EscrowStream) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("EscrowStream: upgrade failed: %v", err)
		return
	}

	log.Infof("EscrowStream: client %s connected", conn.RemoteAddr())

	sendCh := s.register(conn)

	go func() {
		for msg := range sendCh {
			if err := conn.WriteJSON(msg); err != nil {
				log.Errorf("EscrowStream: write to %s failed: %v", conn.RemoteAddr(), err)
				return
			}
		}
	}()

	// the read loop only exists to observe the close handshake
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.unregister(conn)

	if err := conn.Close(); err != nil {
		log.Errorf("EscrowStream: error closing connection: %v", err)
	}

	log.Infof("EscrowStream: client %s disconnected", conn.RemoteAddr())
}
