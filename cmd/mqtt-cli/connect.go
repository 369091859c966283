package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/config"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/store"
)

// defaultTLSPort replaces the plain port when --tls is given without --port.
const defaultTLSPort = 8883

// connectFlags are the connection options shared by pub and sub.
type connectFlags struct {
	host           string
	port           int
	identifier     string
	version        string
	user           string
	password       string
	keepAlive      int
	noCleanSession bool

	tls         bool
	tlsInsecure bool
	caFile      string

	persist bool

	willTopic   string
	willMessage string
	willQoS     int
	willRetain  bool
}

func (f *connectFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.host, "host", "h", "localhost", "broker host")
	fs.IntVarP(&f.port, "port", "p", 1883, "broker port")
	fs.StringVarP(&f.identifier, "identifier", "i", "", "client identifier (default <prefix>-<random>)")
	fs.StringVarP(&f.version, "mqtt-version", "V", config.MQTTVersion311, "MQTT version, 3.1 or 3.1.1")
	fs.StringVarP(&f.user, "user", "u", "", "username")
	fs.StringVar(&f.password, "password", "", "password (prefer MQTT_CLI_MQTT_PASSWORD)")
	fs.IntVarP(&f.keepAlive, "keep-alive", "k", 60, "keep-alive interval in seconds")
	fs.BoolVar(&f.noCleanSession, "no-clean-session", false, "resume the broker-side session")

	fs.BoolVar(&f.tls, "tls", false, "connect over TLS")
	fs.BoolVar(&f.tlsInsecure, "tls-insecure", false, "skip broker certificate verification (implies --tls)")
	fs.StringVar(&f.caFile, "cafile", "", "PEM file with trusted CA certificates (implies --tls)")

	fs.BoolVar(&f.persist, "persist", false, "keep in-flight QoS 1/2 messages in the local store (needs --identifier)")

	fs.StringVar(&f.willTopic, "will-topic", "", "last will topic")
	fs.StringVar(&f.willMessage, "will-message", "", "last will payload")
	fs.IntVar(&f.willQoS, "will-qos", 0, "last will QoS")
	fs.BoolVar(&f.willRetain, "will-retain", false, "retain the last will")
}

// connectParams merges config defaults with the flags the user set.
//
// Returns:
//   - mqtt.ConnectParams: Ready for Executor.Connect
//   - error: usage errors for bad values, failures for unreadable files or store
func (a *app) connectParams(cmd *cobra.Command, f *connectFlags) (mqtt.ConnectParams, error) {
	changed := cmd.Flags().Changed
	broker := a.cfg.MQTT.Broker

	if changed("host") {
		broker.Host = f.host
	}
	if changed("mqtt-version") {
		broker.Version = f.version
	}
	if broker.Version != config.MQTTVersion31 && broker.Version != config.MQTTVersion311 {
		return mqtt.ConnectParams{}, usageError("invalid MQTT version %q: must be 3.1 or 3.1.1", broker.Version)
	}
	if changed("keep-alive") {
		if f.keepAlive < 0 {
			return mqtt.ConnectParams{}, usageError("--keep-alive must not be negative")
		}
		broker.KeepAlive = f.keepAlive
	}

	useTLS := broker.TLS || f.tls || f.tlsInsecure || f.caFile != ""
	switch {
	case changed("port"):
		broker.Port = f.port
	case useTLS && broker.Port == 1883:
		broker.Port = defaultTLSPort
	}
	if broker.Port < 1 || broker.Port > 65535 {
		return mqtt.ConnectParams{}, usageError("invalid port %d", broker.Port)
	}

	params := mqtt.ConnectParams{
		Host:            broker.Host,
		Port:            broker.Port,
		ClientID:        f.identifier,
		ProtocolVersion: broker.ProtocolVersion(),
		Username:        a.cfg.MQTT.Auth.Username,
		Password:        a.cfg.MQTT.Auth.Password,
		CleanSession:    broker.CleanSession && !f.noCleanSession,
		KeepAlive:       broker.GetKeepAlive(),
		ConnectTimeout:  broker.GetConnectTimeout(),
	}
	if changed("user") {
		params.Username = f.user
	}
	if changed("password") {
		params.Password = f.password
	}
	if params.ClientID == "" {
		params.ClientID = mqtt.GenerateClientID(broker.ClientIDPrefix)
	}

	if useTLS {
		tlsConfig, err := f.tlsConfig(broker.Host)
		if err != nil {
			return mqtt.ConnectParams{}, failure(err)
		}
		params.TLS = tlsConfig
	}

	if f.willTopic != "" {
		if err := mqtt.ValidateTopicName(f.willTopic); err != nil {
			return mqtt.ConnectParams{}, usageError("--will-topic: %v", err)
		}
		if err := mqtt.ValidateQoS(f.willQoS); err != nil {
			return mqtt.ConnectParams{}, usageError("--will-qos: %v", err)
		}
		params.Will = &mqtt.Will{
			Topic:   f.willTopic,
			Payload: f.willMessage,
			QoS:     byte(f.willQoS),
			Retain:  f.willRetain,
		}
	}

	if f.persist || a.cfg.MQTT.Store.Enabled {
		if f.identifier == "" {
			return mqtt.ConnectParams{}, usageError("--persist requires --identifier")
		}
		st, err := a.openStore(params.ClientID)
		if err != nil {
			return mqtt.ConnectParams{}, failure(err)
		}
		params.Store = st
		params.CleanSession = false
	}

	return params, nil
}

// tlsConfig builds the client TLS configuration.
func (f *connectFlags) tlsConfig(host string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: host,
		// #nosec G402 -- explicit user opt-in via --tls-insecure
		InsecureSkipVerify: f.tlsInsecure,
	}
	if f.caFile != "" {
		pem, err := os.ReadFile(f.caFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", f.caFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// openStore opens the in-flight message store and registers its close.
func (a *app) openStore(clientID string) (*store.SQLiteStore, error) {
	st := store.New(store.Config{
		Path:        a.cfg.MQTT.Store.Path,
		BusyTimeout: a.cfg.MQTT.Store.BusyTimeout,
		ClientID:    clientID,
	})
	st.SetLogger(a.log)
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("opening message store: %w", err)
	}
	a.registry.Register("message store", func() error {
		st.Close()
		return nil
	})
	a.log.Debug("message store opened", "path", a.cfg.MQTT.Store.Path, "client_id", clientID)
	return st, nil
}

// qosPerTopic expands the -q values to one QoS per topic: none means the
// configured default, one applies to all, otherwise one per topic.
func qosPerTopic(values []int, topics int, fallback int) ([]byte, error) {
	switch len(values) {
	case 0:
		values = []int{fallback}
		fallthrough
	case 1:
		expanded := make([]int, topics)
		for i := range expanded {
			expanded[i] = values[0]
		}
		values = expanded
	case topics:
	default:
		return nil, usageError("got %d QoS values for %d topics: give one for all or one per topic", len(values), topics)
	}

	out := make([]byte, len(values))
	for i, q := range values {
		if err := mqtt.ValidateQoS(q); err != nil {
			return nil, usageError("%v", err)
		}
		out[i] = byte(q)
	}
	return out, nil
}

// connectionWatchInterval is how often sub checks that the session is still up.
const connectionWatchInterval = time.Second
