package api

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"gambler/raffle/domain/entities"
	"gambler/raffle/domain/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const maxWinnersLimit = 100

// RaffleAPI is the subset of raffle operations served over HTTP
type RaffleAPI interface {
	Enter(ctx context.Context, raffleID int64, participant common.Address, amount *big.Int) (*entities.Entry, error)
	CheckUpkeep(ctx context.Context, raffleID int64, checkData []byte) (bool, []byte, error)
	GetRoundStatus(ctx context.Context, raffleID int64, stuckAfter time.Duration) (*interfaces.RoundStatus, error)
	GetParticipant(ctx context.Context, raffleID int64, index int) (common.Address, error)
	RecentWinners(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error)
}

// HTTPHandler serves raffle entries and read-only raffle state
type HTTPHandler struct {
	raffles    RaffleAPI
	stuckAfter time.Duration
}

// NewHTTPHandler creates a handler; stuckAfter decides the stuck flag in status responses
func NewHTTPHandler(raffles RaffleAPI, stuckAfter time.Duration) *HTTPHandler {
	return &HTTPHandler{raffles: raffles, stuckAfter: stuckAfter}
}

// NewRouter builds a gin engine with the raffle routes registered
func NewRouter(handler *HTTPHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	handler.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers all raffle routes
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	raffles := router.Group("/raffles/:id")
	raffles.POST("/entries", h.Enter)
	raffles.GET("", h.GetStatus)
	raffles.GET("/participants/:index", h.GetParticipant)
	raffles.GET("/upkeep", h.CheckUpkeep)
	raffles.GET("/winners", h.RecentWinners)
}

// EnterRequest is the body of POST /raffles/:id/entries
type EnterRequest struct {
	Participant string `json:"participant" binding:"required"`
	Amount      string `json:"amount" binding:"required"` // Wei, decimal
}

// Enter records a paid entry
func (h *HTTPHandler) Enter(c *gin.Context) {
	raffleID, ok := raffleIDParam(c)
	if !ok {
		return
	}

	var req EnterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.Participant) {
		abortWithError(c, http.StatusBadRequest, "participant must be a hex address")
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() < 0 {
		abortWithError(c, http.StatusBadRequest, "amount must be a non-negative decimal wei value")
		return
	}

	entry, err := h.raffles.Enter(c.Request.Context(), raffleID, common.HexToAddress(req.Participant), amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entryResponse{
		RaffleID:    entry.RaffleID,
		RoundNumber: entry.RoundNumber,
		Index:       entry.Seq,
		Participant: entry.Participant.Hex(),
		Amount:      entry.Amount.String(),
	})
}

// GetStatus returns the raffle snapshot
func (h *HTTPHandler) GetStatus(c *gin.Context) {
	raffleID, ok := raffleIDParam(c)
	if !ok {
		return
	}

	status, err := h.raffles.GetRoundStatus(c.Request.Context(), raffleID, h.stuckAfter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newStatusResponse(status))
}

// GetParticipant returns the participant at an index of the current round
func (h *HTTPHandler) GetParticipant(c *gin.Context) {
	raffleID, ok := raffleIDParam(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "index must be an integer")
		return
	}

	participant, err := h.raffles.GetParticipant(c.Request.Context(), raffleID, index)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"index": index, "participant": participant.Hex()})
}

// CheckUpkeep evaluates the settlement predicate; checkData is echoed as performData
func (h *HTTPHandler) CheckUpkeep(c *gin.Context) {
	raffleID, ok := raffleIDParam(c)
	if !ok {
		return
	}

	var checkData []byte
	if raw := c.Query("checkData"); raw != "" {
		decoded, err := hexutil.Decode(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "checkData must be 0x-prefixed hex")
			return
		}
		checkData = decoded
	}

	needed, performData, err := h.raffles.CheckUpkeep(c.Request.Context(), raffleID, checkData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upkeepNeeded": needed,
		"performData":  hexutil.Encode(performData),
	})
}

// RecentWinners lists settled rounds, newest first
func (h *HTTPHandler) RecentWinners(c *gin.Context) {
	raffleID, ok := raffleIDParam(c)
	if !ok {
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxWinnersLimit)
	}

	winners, err := h.raffles.RecentWinners(c.Request.Context(), raffleID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]winnerResponse, len(winners))
	for i, w := range winners {
		resp[i] = newWinnerResponse(w)
	}
	c.JSON(http.StatusOK, gin.H{"winners": resp})
}

func raffleIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "raffle id must be an integer")
		return 0, false
	}
	return id, true
}

// respondError maps raffle rejections to client errors and everything else to 500
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entities.ErrInsufficientAmount),
		errors.Is(err, entities.ErrInvalidParticipant):
		status = http.StatusBadRequest
	case errors.Is(err, entities.ErrRaffleNotFound),
		errors.Is(err, entities.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entities.ErrRoundNotOpen):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":  c.FullPath(),
			"error": err,
		}).Error("Raffle request failed")
		abortWithError(c, status, "internal error")
		return
	}
	abortWithError(c, status, err.Error())
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("HTTP request")
	}
}
