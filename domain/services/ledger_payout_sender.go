package services

import (
	"context"
	"fmt"
	"math/big"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/interfaces"
	"gambler/raffle/domain/utils"

	log "github.com/sirupsen/logrus"
)

// ledgerPayoutSender credits winners in the accounts ledger
type ledgerPayoutSender struct {
	accountRepo        interfaces.AccountRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewLedgerPayoutSender creates a payout sender backed by the accounts ledger
func NewLedgerPayoutSender(
	accountRepo interfaces.AccountRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.PayoutSender {
	return &ledgerPayoutSender{
		accountRepo:        accountRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

// Send credits the full payout amount to the recipient's account
func (s *ledgerPayoutSender) Send(ctx context.Context, payout *interfaces.Payout) (*entities.BalanceHistory, error) {
	if payout.Amount == nil || payout.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", entities.ErrPayoutRejected)
	}

	account, err := s.accountRepo.GetOrCreateForUpdate(ctx, payout.Recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if !account.CanReceive() {
		log.WithFields(log.Fields{
			"raffleID":  payout.RaffleID,
			"recipient": payout.Recipient.Hex(),
			"amount":    payout.Amount.String(),
		}).Warn("Payout rejected, account is frozen")
		return nil, fmt.Errorf("%w: account %s is frozen", entities.ErrPayoutRejected, payout.Recipient.Hex())
	}

	before := new(big.Int).Set(account.Balance)
	after := new(big.Int).Add(before, payout.Amount)
	if err := s.accountRepo.UpdateBalance(ctx, payout.Recipient, after); err != nil {
		return nil, fmt.Errorf("failed to update account balance: %w", err)
	}

	history := &entities.BalanceHistory{
		Address:         payout.Recipient,
		BalanceBefore:   before,
		BalanceAfter:    after,
		ChangeAmount:    new(big.Int).Set(payout.Amount),
		TransactionType: entities.TransactionTypeRafflePayout,
		TransactionMetadata: map[string]any{
			"raffle_id":    payout.RaffleID,
			"round_number": payout.RoundNumber,
			"request_id":   payout.RequestID.Hex(),
		},
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record payout balance change: %w", err)
	}

	return history, nil
}
