package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mqtt-cli/internal/executor"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/influxdb"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/mqtt"
)

func newPubCmd(a *app) *cobra.Command {
	var (
		conn    connectFlags
		topics  []string
		message string
		qos     []int
		retain  bool
	)

	cmd := &cobra.Command{
		Use:     "pub",
		Aliases: []string{"publish"},
		Short:   "Publish a message to one or more topics",
		Example: "  mqtt-cli pub -t sensors/temp -m 21.5 -q 1",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.publish(cmd, &conn, topics, []byte(message), qos, retain)
		},
	}

	conn.register(cmd)
	cmd.Flags().StringArrayVarP(&topics, "topic", "t", nil, "topic to publish to (repeatable)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message payload")
	cmd.Flags().IntSliceVarP(&qos, "qos", "q", nil, "QoS, one for all topics or one per topic")
	cmd.Flags().BoolVarP(&retain, "retain", "r", false, "retain the message")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

// publish connects, publishes payload to every topic and disconnects.
func (a *app) publish(cmd *cobra.Command, conn *connectFlags, topics []string, payload []byte, qosValues []int, retain bool) error {
	for _, topic := range topics {
		if err := mqtt.ValidateTopicName(topic); err != nil {
			return usageError("topic %q: %v", topic, err)
		}
	}
	qos, err := qosPerTopic(qosValues, len(topics), a.cfg.MQTT.QoS)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	session, e, err := a.connect(ctx, cmd, conn)
	if err != nil {
		return err
	}

	results := make([]<-chan bool, len(topics))
	for i, topic := range topics {
		results[i] = e.Publish(session, mqtt.Message{
			Topic:   topic,
			QoS:     qos[i],
			Retain:  retain,
			Payload: payload,
		})
	}

	ok := true
	for _, result := range results {
		select {
		case published := <-result:
			ok = ok && published
		case <-ctx.Done():
			a.log.Warn("publish interrupted")
			return reported()
		}
	}
	if !ok {
		return reported()
	}
	return nil
}

func newSubCmd(a *app) *cobra.Command {
	var (
		conn   connectFlags
		topics []string
		qos    []int
		params executor.SubscribeParams
		influx bool
	)

	cmd := &cobra.Command{
		Use:     "sub",
		Aliases: []string{"subscribe"},
		Short:   "Subscribe to topic filters until interrupted",
		Example: "  mqtt-cli sub -t 'sensors/#' --stdout --of messages.txt",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.subscribe(cmd, &conn, topics, qos, params, influx)
		},
	}

	conn.register(cmd)
	cmd.Flags().StringArrayVarP(&topics, "topic", "t", nil, "topic filter to subscribe to (repeatable)")
	cmd.Flags().IntSliceVarP(&qos, "qos", "q", nil, "QoS, one for all filters or one per filter")
	cmd.Flags().StringVar(&params.OutputFile, "of", "", "append received messages to this file")
	cmd.Flags().BoolVar(&params.PrintStdout, "stdout", false, "print received payloads to standard output")
	cmd.Flags().BoolVar(&influx, "influx", false, "write received messages to InfluxDB")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}

// subscribe connects, subscribes every filter and blocks until ctx ends
// or the connection is lost. The registry closes the subscriptions.
func (a *app) subscribe(cmd *cobra.Command, conn *connectFlags, filters []string, qosValues []int, params executor.SubscribeParams, influx bool) error {
	for _, filter := range filters {
		if err := mqtt.ValidateTopicFilter(filter); err != nil {
			return usageError("topic filter %q: %v", filter, err)
		}
	}
	qos, err := qosPerTopic(qosValues, len(filters), a.cfg.MQTT.QoS)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if influx || a.cfg.InfluxDB.Enabled {
		sink, sinkErr := a.openInfluxSink(ctx)
		if sinkErr != nil {
			return failure(sinkErr)
		}
		params.Sinks = append(params.Sinks, executor.NopCloser(sink))
	}

	session, e, err := a.connect(ctx, cmd, conn)
	if err != nil {
		return err
	}

	subs := make([]*executor.Subscription, 0, len(filters))
	for i, filter := range filters {
		sub, subErr := e.Subscribe(session, params, filter, qos[i])
		if subErr != nil {
			return reported()
		}
		subs = append(subs, sub)
	}

	acked := 0
	for _, sub := range subs {
		if waitErr := sub.Wait(ctx); waitErr == nil {
			acked++
		} else if ctx.Err() != nil {
			return nil
		}
	}
	if acked == 0 {
		return reported()
	}

	return a.watch(ctx, session)
}

// watch blocks until ctx ends (nil) or the session drops (failure).
func (a *app) watch(ctx context.Context, session mqtt.Session) error {
	ticker := time.NewTicker(connectionWatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Debug("interrupted, closing subscriptions")
			return nil
		case <-ticker.C:
			if !session.IsConnected() {
				a.log.Error(session.Info().Prefix() + " lost connection to broker")
				return reported()
			}
		}
	}
}

// connect builds the params, connects a new session and registers its
// disconnect. The returned executor shares the app registry.
func (a *app) connect(ctx context.Context, cmd *cobra.Command, conn *connectFlags) (mqtt.Session, *executor.Executor, error) {
	params, err := a.connectParams(cmd, conn)
	if err != nil {
		return nil, nil, err
	}

	e := a.newExecutor()
	session := a.newSession(a.log)
	if !e.Connect(ctx, session, params) {
		return nil, nil, reported()
	}

	a.registry.Register("session "+params.ClientID, func() error {
		if !session.IsConnected() {
			return nil
		}
		return e.Disconnect(session)
	})
	return session, e, nil
}

// openInfluxSink opens the InfluxDB sink shared by every subscription and
// registers its close.
func (a *app) openInfluxSink(ctx context.Context) (*influxdb.Sink, error) {
	cfg := a.cfg.InfluxDB

	sink, err := influxdb.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening InfluxDB sink: %w", err)
	}
	sink.SetOnError(func(err error) {
		a.log.Error("InfluxDB write error", "error", err)
	})
	a.registry.Register("influxdb", func() error {
		err := sink.Close()
		a.log.Debug("InfluxDB sink closed", "messages", sink.Written())
		return err
	})

	a.log.Debug("InfluxDB sink open", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket, "measurement", cfg.Measurement)
	return sink, nil
}
