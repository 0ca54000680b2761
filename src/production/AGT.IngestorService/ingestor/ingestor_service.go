// Package ingestor bridges the TTN MQTT integration to the ingestion API.
// The MQTT integration publishes the same uplink JSON the webhook receives,
// on v3/<application>/devices/<device>/up; the ingestor forwards each message
// to the API service untouched so both transports converge on one pipeline.
package ingestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	config "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Config"
	"gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.IngestorService/client"
	logger "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Logger"
)

type queuedUplink struct {
	Topic    string
	DeviceID string
	Envelope []byte
}

// Ingestor subscribes to uplink topics and forwards envelopes to the API.
type Ingestor struct {
	cfg        config.MQTTConfig
	apiClient  *client.APIClient
	mqttClient mqtt.Client
	msgCh      chan queuedUplink
	wg         sync.WaitGroup
	logger     *logger.Logger
}

// New creates an ingestor.
func New(cfg config.MQTTConfig, apiClient *client.APIClient, log *logger.Logger) *Ingestor {
	return &Ingestor{
		cfg:       cfg,
		apiClient: apiClient,
		msgCh:     make(chan queuedUplink, 4096),
		logger:    log.WithComponent("ingestor"),
	}
}

// Start connects to the broker, subscribes and launches the forwarder.
func (i *Ingestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(i.brokerURL()).
		SetClientID(i.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(i.cfg.KeepAlive).
		SetPingTimeout(i.cfg.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetCleanSession(false)

	if i.cfg.BrokerUser != "" {
		opts.SetUsername(i.cfg.BrokerUser)
		opts.SetPassword(i.cfg.BrokerPass)
	}

	if i.cfg.UseTLS {
		tlsCfg, err := i.tlsConfig(i.cfg.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.logger.ErrorWithError(err, "MQTT connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		topic := i.cfg.Topic
		if i.cfg.SharedGroup != "" {
			topic = fmt.Sprintf("$share/%s/%s", i.cfg.SharedGroup, i.cfg.Topic)
		}
		i.logger.WithField("topic", topic).Info("MQTT connected, subscribing")
		if token := c.Subscribe(topic, 1, i.onMessage); token.Wait() && token.Error() != nil {
			i.logger.WithField("topic", topic).ErrorWithError(token.Error(), "failed to subscribe")
		}
	}

	i.mqttClient = mqtt.NewClient(opts)
	if tk := i.mqttClient.Connect(); tk.Wait() && tk.Error() != nil {
		return tk.Error()
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.forwarder(ctx)
	}()

	return nil
}

// Stop disconnects and drains the forwarder.
func (i *Ingestor) Stop() {
	if i.mqttClient != nil && i.mqttClient.IsConnected() {
		i.mqttClient.Disconnect(500)
	}
	close(i.msgCh)
	i.wg.Wait()
}

// IsConnected reports broker connectivity.
func (i *Ingestor) IsConnected() bool {
	return i.mqttClient != nil && i.mqttClient.IsConnected()
}

func (i *Ingestor) onMessage(_ mqtt.Client, m mqtt.Message) {
	deviceID := deviceIDFromTopic(m.Topic())
	if deviceID == "" {
		i.logger.WithField("topic", m.Topic()).Warn("unexpected topic shape, forwarding anyway")
	}

	// paho reuses the message buffer after the handler returns
	envelope := make([]byte, len(m.Payload()))
	copy(envelope, m.Payload())

	select {
	case i.msgCh <- queuedUplink{Topic: m.Topic(), DeviceID: deviceID, Envelope: envelope}:
	default:
		i.logger.WithField("device_id", deviceID).Error("uplink queue full, dropping message")
	}
}

func (i *Ingestor) forwarder(ctx context.Context) {
	for msg := range i.msgCh {
		if err := i.apiClient.ForwardUplink(ctx, msg.Envelope); err != nil {
			i.logger.WithField("device_id", msg.DeviceID).ErrorWithError(err, "failed to forward uplink")
			continue
		}
		i.logger.WithField("device_id", msg.DeviceID).Debug("uplink forwarded")
	}
}

// deviceIDFromTopic extracts the device id from a TTN uplink topic
// (v3/<application>/devices/<device>/up). Empty when the topic does not
// match; the envelope still carries identity, so this is log metadata only.
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 5 || parts[0] != "v3" || parts[2] != "devices" || parts[4] != "up" {
		return ""
	}
	return parts[3]
}

func (i *Ingestor) brokerURL() string {
	scheme := "tcp"
	if i.cfg.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, i.cfg.BrokerHost, i.cfg.BrokerPort)
}

func (i *Ingestor) tlsConfig(caCertPath string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caCertPath == "" {
		return cfg, nil
	}

	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("read CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("no certificates parsed from %s", caCertPath)
	}
	cfg.RootCAs = pool
	return cfg, nil
}
