package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"gambler/raffle/cmd"
	"gambler/raffle/database"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: raffle [command]

commands:
  (none)                       run the raffle service
  migrate up|down [n]|status   manage database migrations
  perform-upkeep <raffle-id>   run one keeper cycle
  reset-round <raffle-id>      reopen a round whose randomness never arrived
  entries <raffle-id> <round>  list the entries of a round
  freeze-account <address>     block payouts to an account
  unfreeze-account <address>   allow payouts to an account again
  account-history <address>    show recent ledger movements of an account
  vrf-mock                     run the mock randomness coordinator`

const accountHistoryLimit = 20

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.WithError(err).Fatal("Raffle exited with error")
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return cmd.Run(ctx)
	}

	switch args[0] {
	case "migrate":
		return handleMigrationCommand(args[1:])
	case "perform-upkeep":
		raffleID, err := raffleIDArg(args)
		if err != nil {
			return err
		}
		return cmd.PerformUpkeep(ctx, raffleID)
	case "reset-round":
		raffleID, err := raffleIDArg(args)
		if err != nil {
			return err
		}
		return cmd.ResetRound(ctx, raffleID)
	case "entries":
		raffleID, err := raffleIDArg(args)
		if err != nil {
			return err
		}
		roundNumber, err := roundArg(args)
		if err != nil {
			return err
		}
		return cmd.ListEntries(ctx, raffleID, roundNumber)
	case "freeze-account", "unfreeze-account":
		address, err := addressArg(args)
		if err != nil {
			return err
		}
		return cmd.SetAccountFrozen(ctx, address, args[0] == "freeze-account")
	case "account-history":
		address, err := addressArg(args)
		if err != nil {
			return err
		}
		return cmd.ShowAccountHistory(ctx, address, accountHistoryLimit)
	case "vrf-mock":
		return cmd.RunOracle(ctx)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: raffle migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

func raffleIDArg(args []string) (int64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("usage: raffle %s <raffle-id>", args[0])
	}
	raffleID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || raffleID <= 0 {
		return 0, fmt.Errorf("invalid raffle id %q", args[1])
	}
	return raffleID, nil
}

func roundArg(args []string) (int64, error) {
	if len(args) < 3 {
		return 0, fmt.Errorf("usage: raffle %s <raffle-id> <round>", args[0])
	}
	round, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil || round <= 0 {
		return 0, fmt.Errorf("invalid round %q", args[2])
	}
	return round, nil
}

func addressArg(args []string) (common.Address, error) {
	if len(args) < 2 {
		return common.Address{}, fmt.Errorf("usage: raffle %s <address>", args[0])
	}
	if !common.IsHexAddress(args[1]) {
		return common.Address{}, fmt.Errorf("invalid address %q", args[1])
	}
	return common.HexToAddress(args[1]), nil
}
