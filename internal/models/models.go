// Package models provides domain models for the options analyzer.
package models

import (
	"time"
)

// ContractMultiplier is the number of shares one option contract represents.
const ContractMultiplier = 100

// OrderSide represents the side of an option leg.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OptionType represents call or put.
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// Quote represents a market quote for an underlying.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	PreviousClose float64   `json:"previous_close"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// StrategyStatus represents the lifecycle state of a saved strategy.
type StrategyStatus string

const (
	StrategyActive StrategyStatus = "active"
	StrategyClosed StrategyStatus = "closed"
)

// Strategy is a saved multi-leg position.
type Strategy struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Ticker       string         `json:"ticker"`
	Legs         []OptionLeg    `json:"options"`
	Notes        string         `json:"notes"`
	EntryPrice   *float64       `json:"entry_price,omitempty"`
	TargetProfit *float64       `json:"target_profit,omitempty"`
	StopLoss     *float64       `json:"stop_loss,omitempty"`
	Status       StrategyStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// StrategyUpdate holds the optional fields of a strategy update.
// Nil fields are left unchanged.
type StrategyUpdate struct {
	Name         *string
	Notes        *string
	TargetProfit *float64
	StopLoss     *float64
	Status       *StrategyStatus
}
