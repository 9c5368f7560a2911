package models

import (
	"time"

	"gorm.io/gorm"
)

// MarketRecord is one daily price/volume observation for a ticker.
// Only base fields are stored; derived statistics are recomputed on load.
type MarketRecord struct {
	gorm.Model
	Seq        int       `gorm:"index" json:"-"` // row order of the source file
	Date       time.Time `gorm:"index;not null" json:"date"`
	Ticker     string    `gorm:"index;not null" json:"ticker"`
	TickerName string    `json:"ticker_name"`
	Open       float64   `gorm:"not null" json:"open"`
	Close      float64   `gorm:"not null" json:"close"`
	AdjClose   float64   `gorm:"not null" json:"adj_close"`
	Volume     int64     `gorm:"not null;default:0" json:"volume"`
}
