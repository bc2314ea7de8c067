package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jengzang/ifta-backend-go/internal/gps"
	"github.com/jengzang/ifta-backend-go/internal/service"
	"github.com/jengzang/ifta-backend-go/internal/transport/mqtt"
)

var (
	agentPort     string
	agentBaud     int
	agentBroker   string
	agentClientID string
	agentTrip     string
	agentQoS      int
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Stream fixes from a serial GPS receiver to MQTT",
	Long:  `Read NMEA sentences from a serial GPS receiver and publish every fix of the trip to the MQTT broker.`,
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentPort, "port", "p", "/dev/ttyUSB0", "Serial port of the GPS receiver")
	agentCmd.Flags().IntVarP(&agentBaud, "baud", "b", 4800, "Serial baud rate")
	agentCmd.Flags().StringVar(&agentBroker, "broker", "", "MQTT broker URL (defaults to the configured one)")
	agentCmd.Flags().StringVar(&agentClientID, "client-id", "ifta-agent", "MQTT client ID")
	agentCmd.Flags().StringVarP(&agentTrip, "trip", "t", "", "Trip ID to publish fixes for")
	agentCmd.Flags().IntVar(&agentQoS, "qos", 1, "MQTT QoS (0-2, defaults to the configured one)")
	_ = agentCmd.MarkFlagRequired("trip")
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = agentClientID
	if agentBroker != "" {
		mqttCfg.Broker = agentBroker
	}
	if cmd.Flags().Changed("qos") {
		if agentQoS < 0 || agentQoS > 2 {
			return errors.New("qos must be 0, 1 or 2")
		}
		mqttCfg.QoS = byte(agentQoS)
	}

	client, err := mqtt.Connect(mqttCfg, log)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := mqtt.NewFixPublisher(client, agentTrip, mqttCfg.QoS)
	src := gps.NewSerialSource(agentPort, agentBaud, log)

	err = src.Run(ctx, func(ctx context.Context, fix service.RawFix) error {
		if err := pub.Publish(ctx, fix); err != nil {
			log.Warn().Err(err).Msg("Failed to publish fix")
			return nil
		}
		log.Debug().
			Float64("lat", fix.Latitude).
			Float64("lon", fix.Longitude).
			Int64("ts", fix.TimestampMs).
			Msg("Published fix")
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
