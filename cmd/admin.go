package cmd

import (
	"context"
	"fmt"
	"time"

	"gambler/raffle/application"
	"gambler/raffle/application/dto"
	"gambler/raffle/config"
	"gambler/raffle/database"
	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/utils"
	"gambler/raffle/infrastructure"
	"gambler/raffle/oracle"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// fulfillmentRelay hands mock fulfillments straight to the raffle callback
type fulfillmentRelay struct {
	handler application.FulfillmentHandler
}

func (r *fulfillmentRelay) PublishFulfillment(ctx context.Context, _ common.Address, fulfilled dto.RandomWordsFulfilled) error {
	return r.handler.HandleRandomWordsFulfilled(ctx, fulfilled)
}

// PerformUpkeep runs a single keeper cycle for raffleID. With the mock coordinator enabled
// the request is fulfilled in-process and the winner printed.
func PerformUpkeep(ctx context.Context, raffleID int64) error {
	cfg := config.Get()
	configureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Events are not delivered from one-shot commands
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, infrastructure.NewNoopEventPublisher())

	if !cfg.VRFMockEnabled {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers, "raffle-admin")
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		ops := application.NewRaffleOperations(uowFactory, infrastructure.NewNATSVRFCoordinator(natsClient, cfg.VRFRequestTimeout), cfg.VRFConfig())
		request, err := upkeepOnce(ctx, ops, raffleID)
		if err != nil || request == nil {
			return err
		}
		fmt.Printf("Requested randomness: %s\n", request.RequestID.Hex())
		return nil
	}

	relay := &fulfillmentRelay{}
	mock := oracle.NewMockCoordinator(oracle.MockCoordinatorConfig{
		BaseFee:      cfg.VRFMockBaseFee,
		GasPriceLink: cfg.VRFMockGasPriceLink,
	}, relay)
	defer mock.Close()

	vrfConfig := cfg.VRFConfig()
	vrfConfig.SubscriptionID, err = oracle.Deploy(mock, cfg.ConsumerAddress, cfg.ConsumerAddress, cfg.VRFMockFundAmount)
	if err != nil {
		return err
	}

	ops := application.NewRaffleOperations(uowFactory, mock, vrfConfig)
	relay.handler = application.NewFulfillmentHandler(ops)

	request, err := upkeepOnce(ctx, ops, raffleID)
	if err != nil || request == nil {
		return err
	}
	fmt.Printf("Requested randomness: %s\n", request.RequestID.Hex())

	if err := mock.FulfillRandomWords(ctx, request.RequestID); err != nil {
		return fmt.Errorf("failed to fulfill request: %w", err)
	}

	winners, err := ops.RecentWinners(ctx, raffleID, 1)
	if err != nil {
		return err
	}
	if len(winners) == 0 {
		return fmt.Errorf("round was not settled")
	}
	printWinner(winners[0])
	return nil
}

func upkeepOnce(ctx context.Context, ops *application.RaffleOperations, raffleID int64) (*entities.RandomnessRequest, error) {
	needed, _, err := ops.CheckUpkeep(ctx, raffleID, nil)
	if err != nil {
		return nil, err
	}
	if !needed {
		fmt.Println("No upkeep needed")
		return nil, nil
	}
	return ops.PerformUpkeep(ctx, raffleID, nil)
}

func printWinner(winner *entities.RaffleWinner) {
	fmt.Printf("Round %d winner: %s (%s ETH)\n", winner.RoundNumber, winner.Winner.Hex(), utils.FormatEther(winner.Amount))
}

// ResetRound reopens raffleID's round if its randomness request has been pending past the settlement timeout
func ResetRound(ctx context.Context, raffleID int64) error {
	cfg := config.Get()
	configureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	natsClient := infrastructure.NewNATSClient(cfg.NATSServers, "raffle-admin")
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsClient.Close()

	// The reset event reaches the announcer through the raffle event stream
	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)
	ops := application.NewRaffleOperations(uowFactory, infrastructure.NewNATSVRFCoordinator(natsClient, cfg.VRFRequestTimeout), cfg.VRFConfig())

	result, err := ops.ResetStuckRound(ctx, raffleID, cfg.SettlementTimeout)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"raffleID":  result.RaffleID,
		"round":     result.RoundNumber,
		"requestID": result.AbandonedRequestID.Hex(),
	}).Info("Round reopened")
	fmt.Printf("Round %d reopened with %d entries (%s ETH), abandoned request %s\n",
		result.RoundNumber, result.ParticipantCount, utils.FormatEther(result.Pool), result.AbandonedRequestID.Hex())
	return nil
}

// openLedger opens the operations used by database-only admin commands
func openLedger(ctx context.Context) (*application.RaffleOperations, func(), error) {
	cfg := config.Get()
	configureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Nothing here requests randomness
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, infrastructure.NewNoopEventPublisher())
	return application.NewRaffleOperations(uowFactory, nil, cfg.VRFConfig()), db.Close, nil
}

// SetAccountFrozen blocks or unblocks payouts to address
func SetAccountFrozen(ctx context.Context, address common.Address, frozen bool) error {
	ops, closeDB, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := ops.SetAccountFrozen(ctx, address, frozen); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"address": address.Hex(),
		"frozen":  frozen,
	}).Info("Account payout state changed")
	if frozen {
		fmt.Printf("Payouts to %s frozen\n", address.Hex())
	} else {
		fmt.Printf("Payouts to %s unfrozen\n", address.Hex())
	}
	return nil
}

// ListEntries prints the entries of one round in entry order
func ListEntries(ctx context.Context, raffleID, roundNumber int64) error {
	ops, closeDB, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := ops.RoundEntries(ctx, raffleID, roundNumber)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("Round %d has no entries\n", roundNumber)
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("%3d  %s  %s ETH  %s\n", entry.Seq, entry.Participant.Hex(), utils.FormatEther(entry.Amount), entry.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// ShowAccountHistory prints the latest ledger movements of address
func ShowAccountHistory(ctx context.Context, address common.Address, limit int) error {
	ops, closeDB, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	history, err := ops.AccountHistory(ctx, address, limit)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Printf("No ledger history for %s\n", address.Hex())
		return nil
	}
	for _, h := range history {
		fmt.Printf("%s  %-14s %s ETH  balance %s ETH\n", h.CreatedAt.Format(time.RFC3339), h.TransactionType,
			utils.FormatEther(h.ChangeAmount), utils.FormatEther(h.BalanceAfter))
	}
	return nil
}
