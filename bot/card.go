package bot

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"gambler/raffle/domain/events"
	"gambler/raffle/domain/utils"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	cardWidth  = 480
	cardHeight = 200
	cardMargin = 20
)

// ResultCardGenerator renders settled rounds as PNG cards.
// Font faces are not safe for concurrent use, so rendering is serialized.
type ResultCardGenerator struct {
	mu        sync.Mutex
	titleFace font.Face
	bodyFace  font.Face
}

// NewResultCardGenerator parses the embedded Go fonts
func NewResultCardGenerator() (*ResultCardGenerator, error) {
	titleFace, err := loadFont(gobold.TTF, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to load title font: %w", err)
	}
	bodyFace, err := loadFont(gomono.TTF, 13)
	if err != nil {
		return nil, fmt.Errorf("failed to load body font: %w", err)
	}
	return &ResultCardGenerator{titleFace: titleFace, bodyFace: bodyFace}, nil
}

// CardName is the attachment file name for a round's card
func CardName(raffleID, roundNumber int64) string {
	return fmt.Sprintf("raffle-%d-round-%d.png", raffleID, roundNumber)
}

// Generate draws the card for event and encodes it as PNG
func (g *ResultCardGenerator) Generate(event events.WinnerPickedEvent) ([]byte, error) {
	start := time.Now()
	defer func() {
		log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Result card generated")
	}()

	g.mu.Lock()
	defer g.mu.Unlock()

	dc := gg.NewContext(cardWidth, cardHeight)

	gradient := gg.NewLinearGradient(0, 0, 0, cardHeight)
	gradient.AddColorStop(0, rgb(0.05, 0.06, 0.14))
	gradient.AddColorStop(1, rgb(0.10, 0.05, 0.20))
	dc.SetFillStyle(gradient)
	dc.DrawRectangle(0, 0, cardWidth, cardHeight)
	dc.Fill()

	// Gold accent bar
	dc.SetRGB(1, 0.84, 0)
	dc.DrawRectangle(0, 0, 6, cardHeight)
	dc.Fill()

	dc.SetFontFace(g.titleFace)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(fmt.Sprintf("Raffle #%d  Round %d", event.RaffleID, event.RoundNumber), cardMargin, 40)

	dc.SetRGB(1, 0.84, 0)
	dc.DrawStringAnchored(utils.FormatEther(event.Amount)+" ETH", cardWidth-cardMargin, 40, 1, 0)

	dc.SetRGBA(1, 1, 1, 0.3)
	dc.SetLineWidth(1)
	dc.DrawLine(cardMargin, 56, cardWidth-cardMargin, 56)
	dc.Stroke()

	dc.SetFontFace(g.bodyFace)
	lines := []struct {
		label string
		value string
	}{
		{"winner", event.Winner.Hex()},
		{"entries", fmt.Sprintf("%d", event.ParticipantCount)},
		{"index", fmt.Sprintf("%d = word mod %d", event.WinnerIndex, event.ParticipantCount)},
		{"request", shortHash(event.RequestID.Hex())},
	}
	y := 86.0
	for _, line := range lines {
		dc.SetRGB(0.6, 0.6, 0.75)
		dc.DrawString(line.label, cardMargin, y)
		dc.SetRGB(0.95, 0.95, 1)
		dc.DrawString(line.value, cardMargin+80, y)
		y += 26
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode result card: %w", err)
	}
	return buf.Bytes(), nil
}

// loadFont loads a font from byte data
func loadFont(fontData []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

func rgb(r, g, b float64) color.Color {
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}
