package entities

import (
	"errors"
	"fmt"
	"math/big"
)

// Rejections returned by raffle operations. None of them leave partial state behind.
var (
	ErrInsufficientAmount  = errors.New("entrance fee must be paid exactly")
	ErrRoundNotOpen        = errors.New("raffle round is not open")
	ErrUpkeepNotNeeded     = errors.New("upkeep not needed")
	ErrUnknownRequest      = errors.New("unknown randomness request")
	ErrRequestNotRecorded  = errors.New("randomness request not recorded yet")
	ErrPayoutRejected      = errors.New("payout rejected")
	ErrRoundNotStuck       = errors.New("raffle round is not stuck")
	ErrRaffleNotFound      = errors.New("raffle not found")
	ErrInvalidParticipant  = errors.New("invalid participant address")
	ErrNoRandomWords       = errors.New("no random words delivered")
	ErrNoParticipants      = errors.New("raffle has no participants")
	ErrParticipantNotFound = errors.New("participant index out of range")
)

// UpkeepNotNeededError carries the state that made the upkeep predicate false.
type UpkeepNotNeededError struct {
	Pool             *big.Int
	ParticipantCount int
	Phase            RafflePhase
	Check            UpkeepCheck
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed: pool=%s participants=%d phase=%s (%s)",
		e.Pool.String(), e.ParticipantCount, e.Phase, e.Check.Reason())
}

// Is lets callers match with errors.Is(err, ErrUpkeepNotNeeded).
func (e *UpkeepNotNeededError) Is(target error) bool {
	return target == ErrUpkeepNotNeeded
}
