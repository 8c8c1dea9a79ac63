// Package mqttpub broadcasts evaluation snapshots to an MQTT broker.
package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/anibaldeboni/zero-paper/cropwatch/monitor"
)

const (
	defaultTopicPrefix    = "cropwatch"
	defaultConnectTimeout = 10 * time.Second
)

var (
	ErrNoBroker       = errors.New("mqtt broker address is required")
	ErrConnectTimeout = errors.New("mqtt connect timed out")
)

// Config define a conexão com o broker
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	Retained       bool
	ConnectTimeout time.Duration
}

// Connect opens a client with automatic reconnection.
func Connect(config Config) (mqtt.Client, error) {
	if config.Broker == "" {
		return nil, ErrNoBroker
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaultConnectTimeout
	}

	opts := mqtt.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(config.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		})
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrConnectTimeout, config.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", config.Broker, err)
	}

	log.Printf("Connected to MQTT broker %s", config.Broker)
	return client, nil
}

// Publisher implementa monitor.Publisher sobre um cliente MQTT
type Publisher struct {
	client   mqtt.Client
	prefix   string
	qos      byte
	retained bool
}

// NewPublisher cria um publisher para o cliente informado
func NewPublisher(client mqtt.Client, config Config) *Publisher {
	prefix := strings.Trim(config.TopicPrefix, "/")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return &Publisher{
		client:   client,
		prefix:   prefix,
		qos:      config.QoS,
		retained: config.Retained,
	}
}

var topicSegment = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// Topic returns the topic snapshots of profile are published to. Wildcards
// and separators in the profile name are replaced so it stays one level.
func (p *Publisher) Topic(profile string) string {
	profile = topicSegment.Replace(strings.TrimSpace(profile))
	if profile == "" {
		profile = "_"
	}
	return p.prefix + "/" + profile + "/evaluation"
}

// Publish sends snap as JSON under the resolved profile's topic.
func (p *Publisher) Publish(ctx context.Context, snap monitor.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	topic := p.Topic(snap.Profile.Profile.Name)
	token := p.client.Publish(topic, p.qos, p.retained, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
