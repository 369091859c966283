package mqtt

import (
	"crypto/tls"
	"net"
	"net/url"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for CONNACK.
	defaultConnectTimeout = 10 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho MQTT options from connect parameters.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID and protocol version
//   - Authentication credentials (if provided)
//   - Last Will and Testament (if provided)
//   - No automatic reconnect or connect retry: a CLI run fails fast
//   - The dial function that installs the QoS 2 observer
func buildClientOptions(p ConnectParams, dial pahomqtt.OpenConnectionFunc) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(p.BrokerURI())
	opts.SetClientID(p.ClientID)
	opts.SetProtocolVersion(p.ProtocolVersion)

	if p.Username != "" {
		opts.SetUsername(p.Username)
		opts.SetPassword(p.Password)
	}

	opts.SetCleanSession(p.CleanSession)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	connectTimeout := p.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	opts.SetConnectTimeout(connectTimeout)

	keepAlive := p.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	opts.SetKeepAlive(keepAlive)

	if p.TLS != nil {
		tlsConfig := p.TLS.Clone()
		if tlsConfig.MinVersion < tlsMinVersion {
			tlsConfig.MinVersion = tlsMinVersion
		}
		opts.SetTLSConfig(tlsConfig)
	}

	if p.Will != nil {
		opts.SetWill(p.Will.Topic, p.Will.Payload, p.Will.QoS, p.Will.Retain)
	}

	if p.Store != nil {
		opts.SetStore(p.Store)
	}

	// Handlers run in arrival order on the router goroutine and must not
	// block; the executor's handler only enqueues.
	opts.SetOrderMatters(true)

	if dial != nil {
		opts.SetCustomOpenConnectionFn(dial)
	}

	return opts
}

// dialBroker opens the network connection for uri, using TLS for the
// ssl, tls, mqtts and tcps schemes.
func dialBroker(uri *url.URL, tlsConfig *tls.Config, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}

	switch uri.Scheme {
	case "ssl", "tls", "mqtts", "tcps":
		cfg := &tls.Config{MinVersion: tlsMinVersion}
		if tlsConfig != nil {
			cfg = tlsConfig.Clone()
		}
		if cfg.ServerName == "" {
			cfg.ServerName = uri.Hostname()
		}
		return tls.DialWithDialer(dialer, "tcp", uri.Host, cfg)
	default:
		return dialer.Dial("tcp", uri.Host)
	}
}
