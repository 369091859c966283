// Package influxdb provides an InfluxDB sink for received MQTT messages.
//
// It wraps the official influxdb-client-go v2 library's non-blocking write
// API: each message becomes one point, and points are batched and sent in
// the background.
//
// # Purpose
//
// "mqtt-cli sub --influx" records every received message in the configured
// measurement (mqtt_messages by default), tagged by topic and QoS, so a
// subscription can be charted or queried later.
//
// # Usage
//
//	sink, err := influxdb.Open(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//
//	sink.SetOnError(func(err error) { log.Warn("batch lost", "error", err) })
//	if err := sink.WriteMessage(msg); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking.
package influxdb
