// Package store persists in-flight MQTT packets in SQLite.
//
// SQLiteStore implements paho's Store interface. With a persistent session
// (clean session off) a QoS 1 or QoS 2 publish that has not completed when
// the CLI exits is written here, and paho resends it on the next run with
// the same client identifier.
//
// Rows are keyed by client identifier, so several identities can share one
// database file.
//
// Usage:
//
//	st := store.New(store.Config{Path: path, BusyTimeout: 5, ClientID: id})
//	if err := st.Init(); err != nil {
//	    return err
//	}
//	params.Store = st
package store
