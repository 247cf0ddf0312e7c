package cmd

import (
	"context"
	"fmt"

	"gambler/raffle/config"
	"gambler/raffle/infrastructure"
	"gambler/raffle/oracle"

	log "github.com/sirupsen/logrus"
)

// startMockOracle serves an in-process mock coordinator on NATS and provisions a funded
// subscription for the configured consumer. The returned coordinator must be closed.
func startMockOracle(natsClient *infrastructure.NATSClient, cfg *config.Config) (*oracle.MockCoordinator, uint64, error) {
	if err := infrastructure.EnsureFulfillmentStream(natsClient); err != nil {
		return nil, 0, err
	}

	coordinator := oracle.NewMockCoordinator(oracle.MockCoordinatorConfig{
		BaseFee:      cfg.VRFMockBaseFee,
		GasPriceLink: cfg.VRFMockGasPriceLink,
		FulfillDelay: cfg.VRFMockFulfillDelay,
	}, oracle.NewNATSFulfillmentPublisher(natsClient))

	subID, err := oracle.Deploy(coordinator, cfg.ConsumerAddress, cfg.ConsumerAddress, cfg.VRFMockFundAmount)
	if err != nil {
		coordinator.Close()
		return nil, 0, fmt.Errorf("failed to provision mock subscription: %w", err)
	}

	if err := oracle.NewServer(coordinator).Start(natsClient); err != nil {
		coordinator.Close()
		return nil, 0, err
	}

	log.WithFields(log.Fields{
		"subscriptionID": subID,
		"consumer":       cfg.ConsumerAddress.Hex(),
		"fulfillDelay":   cfg.VRFMockFulfillDelay,
	}).Info("Mock randomness coordinator deployed")
	return coordinator, subID, nil
}

// RunOracle runs the mock coordinator as a standalone process until ctx is cancelled
func RunOracle(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)

	natsClient := infrastructure.NewNATSClient(cfg.NATSServers, "raffle-vrf-mock")
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsClient.Close()

	coordinator, _, err := startMockOracle(natsClient, cfg)
	if err != nil {
		return err
	}
	defer coordinator.Close()

	<-ctx.Done()
	log.WithField("pending", len(coordinator.PendingRequests())).Info("Mock coordinator shutting down")
	return nil
}
