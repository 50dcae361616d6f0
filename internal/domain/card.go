package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Game is the trading card game a card belongs to. It selects valuation rules and market conventions.
type Game string

const (
	GamePokemon  Game = "pokemon"
	GameMTG      Game = "mtg"
	GameYugioh   Game = "yugioh"
	GameLorcana  Game = "lorcana"
	GameOnePiece Game = "onepiece"
)

// NormalizeGame lowercases and trims a game identifier.
func NormalizeGame(raw string) Game {
	return Game(strings.ToLower(strings.TrimSpace(raw)))
}

// Printing is the print treatment used to match embedded variant prices.
type Printing string

const (
	PrintingNormal Printing = "Normal"
	PrintingFoil   Printing = "Foil"
)

// ErrHoloConflict indicates that both holo and reverse-holo were set.
var ErrHoloConflict = errors.New("holo and reverse holo are mutually exclusive")

// Finish holds the finish flags of a card.
type Finish struct {
	FirstEdition bool `json:"isFirstEdition" yaml:"isFirstEdition"`
	Holo         bool `json:"isHolo" yaml:"isHolo"`
	ReverseHolo  bool `json:"isReverseHolo" yaml:"isReverseHolo"`
}

// Validate checks the holo/reverse-holo exclusivity.
func (f Finish) Validate() error {
	if f.Holo && f.ReverseHolo {
		return ErrHoloConflict
	}
	return nil
}

// WithHolo returns a copy with Holo set; turning holo on turns reverse holo off.
func (f Finish) WithHolo(on bool) Finish {
	f.Holo = on
	if on {
		f.ReverseHolo = false
	}
	return f
}

// WithReverseHolo returns a copy with ReverseHolo set; turning it on turns holo off.
func (f Finish) WithReverseHolo(on bool) Finish {
	f.ReverseHolo = on
	if on {
		f.Holo = false
	}
	return f
}

// Printing maps the finish to the variant printing name.
func (f Finish) Printing() Printing {
	if f.Holo || f.ReverseHolo {
		return PrintingFoil
	}
	return PrintingNormal
}

// Variant is a priced (condition, printing) combination embedded on a card record.
type Variant struct {
	Condition Condition       `json:"condition"`
	Printing  Printing        `json:"printing"`
	Price     decimal.Decimal `json:"price"`
}

// CardRef identifies a card and carries its category and optional embedded variant prices.
type CardRef struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name,omitempty"`
	SetName   string    `json:"setName,omitempty"`
	Game      Game      `json:"game"`
	Variants  []Variant `json:"variants,omitempty"`
}

// Validate checks the fields required for pricing.
func (c CardRef) Validate() error {
	if c.Game == "" {
		return fmt.Errorf("card %q: game is required", c.ProductID)
	}
	for i, v := range c.Variants {
		if !v.Condition.Valid() {
			return fmt.Errorf("card %q: variant %d has unknown condition %q", c.ProductID, i, v.Condition)
		}
		if v.Price.IsNegative() {
			return fmt.Errorf("card %q: variant %d has negative price", c.ProductID, i)
		}
	}
	return nil
}
