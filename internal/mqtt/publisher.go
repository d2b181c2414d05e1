package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"deskhud/internal/frame"
	"deskhud/internal/logging"
)

// client is the part of the paho client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

type Publisher struct {
	client      client
	topicPrefix string
	enabled     bool
	log         *slog.Logger
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
	Logger      *slog.Logger
}

// WidgetNotice describes one packed widget without its payload.
type WidgetNotice struct {
	Version uint32 `json:"version"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Bytes   int    `json:"bytes"`
	Changed bool   `json:"changed"`
}

// FrameNotice is the retained message published on {prefix}/frame.
type FrameNotice struct {
	Version     uint32                  `json:"version"`
	GeneratedAt time.Time               `json:"generated_at"`
	Widgets     map[string]WidgetNotice `json:"widgets"`
	Degraded    []string                `json:"degraded,omitempty"`
}

// NewFrameNotice summarizes f; changed names the widgets whose payload
// differs from the previous frame.
func NewFrameNotice(f *frame.Frame, changed []string) FrameNotice {
	isChanged := make(map[string]bool, len(changed))
	for _, name := range changed {
		isChanged[name] = true
	}
	n := FrameNotice{
		Version:     f.Version,
		GeneratedAt: f.GeneratedAt,
		Widgets:     make(map[string]WidgetNotice, len(f.Packed)),
		Degraded:    f.Degraded,
	}
	for name, p := range f.Packed {
		n.Widgets[name] = WidgetNotice{
			Version: f.Version,
			Width:   p.Width,
			Height:  p.Height,
			Bytes:   len(p.Payload),
			Changed: isChanged[name],
		}
	}
	return n
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	log := logging.Component(cfg.Logger, "mqtt")
	if !cfg.Enabled {
		return &Publisher{enabled: false, log: log}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Warn("MQTT connection lost", "error", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Info("MQTT connected", "broker", cfg.Broker)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return newPublisher(c, cfg.TopicPrefix, log), nil
}

// newPublisher expects log to already carry the component attribute.
func newPublisher(c client, prefix string, log *slog.Logger) *Publisher {
	return &Publisher{
		client:      c,
		topicPrefix: prefix,
		enabled:     true,
		log:         log,
	}
}

// PublishFrame announces a new frame: the version of every changed widget on
// {prefix}/{widget}/version and the full notice, retained, on {prefix}/frame.
func (p *Publisher) PublishFrame(f *frame.Frame, changed []string) error {
	if !p.enabled {
		return nil
	}

	names := append([]string(nil), changed...)
	sort.Strings(names)
	for _, name := range names {
		topic := fmt.Sprintf("%s/%s/version", p.topicPrefix, name)
		token := p.client.Publish(topic, 0, true, fmt.Sprintf("%d", f.Version))
		token.Wait()
		if token.Error() != nil {
			p.log.Warn("publish failed", "topic", topic, "error", token.Error())
		}
	}

	notice, err := json.Marshal(NewFrameNotice(f, changed))
	if err != nil {
		return fmt.Errorf("failed to marshal frame notice: %w", err)
	}

	frameTopic := fmt.Sprintf("%s/frame", p.topicPrefix)
	token := p.client.Publish(frameTopic, 1, true, notice)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish frame notice: %w", token.Error())
	}
	return nil
}

// PublishHomeAssistantDiscovery registers the frame version as a sensor.
func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	config := map[string]interface{}{
		"name":           "DeskHUD frame version",
		"unique_id":      "deskhud_frame_version",
		"state_topic":    fmt.Sprintf("%s/frame", p.topicPrefix),
		"value_template": "{{ value_json.version }}",
		"device": map[string]interface{}{
			"identifiers":  []string{"deskhud"},
			"name":         "DeskHUD",
			"manufacturer": "DeskHUD",
			"model":        "e-paper panel server",
		},
	}
	payload, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal discovery config: %w", err)
	}
	token := p.client.Publish("homeassistant/sensor/deskhud/frame_version/config", 0, true, payload)
	token.Wait()
	return token.Error()
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
