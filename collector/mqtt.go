package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/model"
)

// DefaultMQTTTopic carries one JSON reading per message; the middle topic
// level is the sensor id.
const DefaultMQTTTopic = "sensors/+/reading"

// MQTTConfig holds MQTT client configuration.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// MQTTSource keeps the latest pushed reading per sensor and serves them
// on Fetch.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	log    *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	latest map[string]model.SensorReading
	order  []string
}

// mqttPayload is the message body on the reading topic.
type mqttPayload struct {
	Value     *float64 `json:"value"`
	Timestamp flexTime `json:"timestamp"`
}

// NewMQTTSource returns an unconnected source. Call Connect before use.
func NewMQTTSource(cfg MQTTConfig, log *zap.Logger) *MQTTSource {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultMQTTTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("sensetop-%d", time.Now().UnixNano())
	}
	s := &MQTTSource{
		topic:  cfg.Topic,
		log:    log,
		now:    time.Now,
		latest: make(map[string]model.SensorReading),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		// resubscribe after every reconnect
		if token := c.Subscribe(s.topic, 1, s.handleMessage); token.Wait() && token.Error() != nil {
			s.log.Error("mqtt subscribe failed", zap.String("topic", s.topic), zap.Error(token.Error()))
			return
		}
		s.log.Info("mqtt subscribed", zap.String("topic", s.topic))
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		s.log.Warn("mqtt connection lost", zap.Error(err))
	})
	s.client = mqtt.NewClient(opts)
	return s
}

// Connect dials the broker and waits for the connection or ctx.
func (s *MQTTSource) Connect(ctx context.Context) error {
	token := s.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

// Name implements Source.
func (s *MQTTSource) Name() string { return "mqtt" }

// Fetch returns the latest reading of every sensor heard so far.
func (s *MQTTSource) Fetch(ctx context.Context) (*model.ReadingSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, errors.New("no mqtt readings received yet")
	}
	rs := &model.ReadingSet{FetchedAt: s.now(), Readings: make([]model.SensorReading, 0, len(s.order))}
	for _, id := range s.order {
		rs.Readings = append(rs.Readings, s.latest[id])
	}
	return rs, nil
}

func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	id := sensorFromTopic(msg.Topic())
	sensor, ok := Lookup(id)
	if !ok {
		s.log.Debug("mqtt reading for unknown sensor", zap.String("topic", msg.Topic()))
		return
	}
	var p mqttPayload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		s.log.Warn("mqtt payload decode failed", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}
	if p.Value == nil {
		return
	}
	at := p.Timestamp.Time
	if at.IsZero() {
		at = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.latest[id]; !seen {
		s.order = append(s.order, id)
	}
	s.latest[id] = model.SensorReading{
		SensorID:   id,
		Metric:     sensor.Metric,
		Value:      *p.Value,
		Unit:       sensor.Unit,
		ObservedAt: at,
	}
}

// sensorFromTopic extracts the id from sensors/{id}/reading.
func sensorFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}
