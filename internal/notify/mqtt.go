package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/junsooki/laserview/internal/stream"
)

const (
	mqttQueueSize      = 32
	mqttPublishTimeout = 2 * time.Second
)

// MQTTConfig selects the broker and topic prefix.
type MQTTConfig struct {
	Broker   string // host:port
	ClientID string
	Topic    string
}

// publisher is the subset of mqtt.Client used for publishing.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes transitions as JSON to "<topic>/events". Publishing
// happens on a background goroutine; a full queue drops the event.
type MQTT struct {
	client publisher
	topic  string
	log    zerolog.Logger

	queue   chan Event
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// DialMQTT connects to the broker and starts the publish loop.
func DialMQTT(cfg MQTTConfig, log zerolog.Logger) (*MQTT, mqtt.Client, error) {
	log = log.With().Str("component", "mqtt").Logger()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("mqtt connection established")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost, will auto-reconnect")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return NewMQTT(client, cfg.Topic, log), client, nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(client publisher, topic string, log zerolog.Logger) *MQTT {
	m := &MQTT{
		client: client,
		topic:  topic,
		log:    log,
		queue:  make(chan Event, mqttQueueSize),
		done:   make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *MQTT) StreamOpened(conn stream.Connection) {
	m.enqueue(newEvent(EventStreamOpened, conn, nil))
}

func (m *MQTT) StreamClosed(conn stream.Connection, err error) {
	m.enqueue(newEvent(EventStreamClosed, conn, err))
}

// Dropped reports events discarded because the queue was full.
func (m *MQTT) Dropped() uint64 {
	return m.dropped.Load()
}

// Close stops the publish loop. Queued events are discarded.
func (m *MQTT) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *MQTT) enqueue(ev Event) {
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case m.queue <- ev:
	default:
		m.dropped.Add(1)
	}
}

func (m *MQTT) loop() {
	topic := m.topic + "/events"
	for {
		select {
		case <-m.done:
			return
		case ev := <-m.queue:
			payload, err := json.Marshal(ev)
			if err != nil {
				m.failed.Add(1)
				continue
			}
			token := m.client.Publish(topic, 1, false, payload)
			if !token.WaitTimeout(mqttPublishTimeout) {
				m.failed.Add(1)
				m.log.Warn().Str("topic", topic).Msg("mqtt publish timeout")
				continue
			}
			if err := token.Error(); err != nil {
				m.failed.Add(1)
				m.log.Warn().Err(err).Str("topic", topic).Msg("mqtt publish failed")
			}
		}
	}
}
