package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/web3guy0/snipebot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STORE - Persistence layer (markets, trades, logs, signals, wallet scores)
// ═══════════════════════════════════════════════════════════════════════════════

type Store struct {
	db *gorm.DB
}

// Models

type Market struct {
	ID            string `gorm:"primaryKey"`
	Title         string
	Slug          string
	URL           string
	Category      string `gorm:"index"`
	Persons       string // comma-separated canonical names
	Volume        float64
	Liquidity     float64
	DaysRemaining *int
	Urgency       string
	UrgencyRate   int
	SnipeScore    float64 `gorm:"index"`
	EndDate       *time.Time
	LastSeen      time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PaperTrade struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	MarketID      string `gorm:"index"`
	MarketTitle   string
	Side          string
	Size          decimal.Decimal `gorm:"type:decimal(20,2)"`
	Confidence    float64
	SignalQuality float64
	MarketQuality float64
	Status        string `gorm:"index"`
	Outcome       string
	Payout        decimal.Decimal `gorm:"type:decimal(20,2)"`
	Profit        decimal.Decimal `gorm:"type:decimal(20,2)"`
	SignalSource  string
	SignalContent string
	OpenedAt      time.Time
	ClosedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type LogEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Module    string `gorm:"index"`
	Level     string
	Message   string
	Timestamp time.Time `gorm:"index"`
}

type SignalRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Type      string `gorm:"index"`
	MarketID  string `gorm:"index"`
	Side      string
	Magnitude float64
	Metadata  string // JSON
	Timestamp time.Time
	CreatedAt time.Time
}

type WalletScoreRow struct {
	Address        string `gorm:"primaryKey"`
	Grade          string `gorm:"index"`
	SuccessRate    float64
	ROIAdjusted    float64
	TimingScore    float64
	FinalScore     float64
	TotalMarkets   int
	TotalVolume    float64
	AvgEntryTiming *float64
	LastUpdated    time.Time
}

type Favorite struct {
	MarketID  string `gorm:"primaryKey"`
	CreatedAt time.Time
}

type Setting struct {
	Key         string `gorm:"primaryKey"`
	Value       string
	Category    string
	Description string
	UpdatedAt   time.Time
}

type ActivitySnapshot struct {
	ID            uint `gorm:"primaryKey;autoIncrement"`
	Markets       int
	OpenPositions int
	Balance       decimal.Decimal `gorm:"type:decimal(20,2)"`
	TotalProfit   decimal.Decimal `gorm:"type:decimal(20,2)"`
	CreatedAt     time.Time
}

// Open connects to the database and migrates the schema. A postgres://
// prefix selects PostgreSQL; anything else is treated as a SQLite path.
func Open(dbPath string) (*Store, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("💾 Database connected (PostgreSQL)")
	} else {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("💾 Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(
		&Market{}, &PaperTrade{}, &LogEntry{}, &SignalRecord{},
		&WalletScoreRow{}, &Favorite{}, &Setting{}, &ActivitySnapshot{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Market operations

// SaveMarkets upserts the latest radar snapshot. Re-fetches replace
// prior enrichment.
func (s *Store) SaveMarkets(markets []types.Market) error {
	now := time.Now().UTC()
	for _, m := range markets {
		row := Market{
			ID:            m.ID,
			Title:         m.Title,
			Slug:          m.Slug,
			URL:           m.URL,
			Category:      string(m.Category),
			Persons:       strings.Join(m.Persons, ","),
			Volume:        m.Volume,
			Liquidity:     m.Liquidity,
			DaysRemaining: m.DaysRemaining,
			Urgency:       string(m.Urgency),
			UrgencyRate:   m.UrgencyRate,
			SnipeScore:    m.SnipeScore,
			EndDate:       m.EndDate,
			LastSeen:      now,
		}
		if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// Trade operations

func (s *Store) SaveTrade(t *types.PaperTrade) error {
	row := PaperTrade{
		MarketID:      t.MarketID,
		MarketTitle:   t.MarketTitle,
		Side:          string(t.Side),
		Size:          t.Size,
		Confidence:    t.Confidence,
		SignalQuality: t.SignalQuality,
		MarketQuality: t.MarketQuality,
		Status:        t.Status,
		Outcome:       t.Outcome,
		Payout:        t.Payout,
		Profit:        t.Profit,
		SignalSource:  t.SignalSource,
		SignalContent: t.SignalContent,
		OpenedAt:      t.OpenedAt,
		ClosedAt:      t.ClosedAt,
	}
	return s.db.Create(&row).Error
}

// CloseTrade marks the most recent open trade on a market as settled.
func (s *Store) CloseTrade(marketID, outcome string, payout, profit decimal.Decimal) error {
	now := time.Now().UTC()
	res := s.db.Model(&PaperTrade{}).
		Where("market_id = ? AND status = ?", marketID, types.StatusOpen).
		Updates(map[string]any{
			"status":    types.StatusClosed,
			"outcome":   outcome,
			"payout":    payout,
			"profit":    profit,
			"closed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("no open trade for market " + marketID)
	}
	return nil
}

func (s *Store) RecentTrades(limit int) ([]PaperTrade, error) {
	var rows []PaperTrade
	err := s.db.Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Log operations

// AppendLog writes a module log row. Failures are logged and swallowed;
// audit logging never blocks the pipeline.
func (s *Store) AppendLog(module, level, message string) {
	entry := LogEntry{Module: module, Level: level, Message: message, Timestamp: time.Now().UTC()}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("module", module).Msg("Failed to write log entry")
	}
}

// Signal operations

func (s *Store) SaveSignal(sig types.Signal) error {
	meta, err := json.Marshal(sig.Metadata)
	if err != nil {
		meta = []byte("{}")
	}
	row := SignalRecord{
		Type:      string(sig.Type),
		MarketID:  sig.MarketID,
		Side:      string(sig.Side),
		Magnitude: sig.Magnitude,
		Metadata:  string(meta),
		Timestamp: sig.Timestamp,
	}
	return s.db.Create(&row).Error
}

// Wallet score operations

func (s *Store) WalletScore(address string) (*types.WalletScore, error) {
	var row WalletScoreRow
	if err := s.db.First(&row, "address = ?", address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &types.WalletScore{
		Address:        row.Address,
		Grade:          types.Grade(row.Grade),
		SuccessRate:    row.SuccessRate,
		ROIAdjusted:    row.ROIAdjusted,
		TimingScore:    row.TimingScore,
		FinalScore:     row.FinalScore,
		TotalMarkets:   row.TotalMarkets,
		TotalVolume:    row.TotalVolume,
		AvgEntryTiming: row.AvgEntryTiming,
		LastUpdated:    row.LastUpdated,
	}, nil
}

func (s *Store) SaveWalletScore(ws types.WalletScore) error {
	row := WalletScoreRow{
		Address:        ws.Address,
		Grade:          string(ws.Grade),
		SuccessRate:    ws.SuccessRate,
		ROIAdjusted:    ws.ROIAdjusted,
		TimingScore:    ws.TimingScore,
		FinalScore:     ws.FinalScore,
		TotalMarkets:   ws.TotalMarkets,
		TotalVolume:    ws.TotalVolume,
		AvgEntryTiming: ws.AvgEntryTiming,
		LastUpdated:    ws.LastUpdated,
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// Favorite operations

func (s *Store) Favorites() (map[string]bool, error) {
	var rows []Favorite
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.MarketID] = true
	}
	return out, nil
}

func (s *Store) SetFavorite(marketID string, favorite bool) error {
	if favorite {
		return s.db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&Favorite{MarketID: marketID}).Error
	}
	return s.db.Delete(&Favorite{}, "market_id = ?", marketID).Error
}

// Settings operations (the persistent config store)

func (s *Store) Setting(key string) (string, bool) {
	var row Setting
	if err := s.db.First(&row, "key = ?", key).Error; err != nil {
		return "", false
	}
	return row.Value, true
}

func (s *Store) PutSetting(key, value, category, description string) error {
	row := Setting{Key: key, Value: value, Category: category, Description: description}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// SeedSettings writes env-provided values into the settings store
// without overwriting operator edits.
func (s *Store) SeedSettings(seed map[string]string) {
	for key, value := range seed {
		if _, ok := s.Setting(key); ok {
			continue
		}
		if err := s.PutSetting(key, value, "system", "seeded from environment"); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to seed setting")
		}
	}
}

// Activity snapshots

func (s *Store) SaveActivitySnapshot(markets, openPositions int, balance, totalProfit decimal.Decimal) error {
	row := ActivitySnapshot{
		Markets:       markets,
		OpenPositions: openPositions,
		Balance:       balance,
		TotalProfit:   totalProfit,
	}
	return s.db.Create(&row).Error
}

// Close closes the underlying connection.
func (s *Store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
