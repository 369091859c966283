// Package config handles loading and validating mqtt-cli configuration.
//
// This package manages:
//   - Loading defaults from $HOME/.mqtt-cli/config.yaml (optional)
//   - Overriding with MQTT_CLI_* environment variables
//   - Validation of every field in one pass
//   - Default value handling
//
// Security Considerations:
//   - Broker passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
