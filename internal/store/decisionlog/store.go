// Package decisionlog 持久化每日战术决策，方便复盘与 HTTP 查询。
package decisionlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RunStatus 一次战术生成的终局。
type RunStatus string

const (
	RunStatusAction RunStatus = "ACTION"
	RunStatusWait   RunStatus = "WAIT"
)

// ConsultOutcome 单次咨询的结果分类。
type ConsultOutcome string

const (
	OutcomeApproved ConsultOutcome = "approved"
	OutcomeVetoed   ConsultOutcome = "vetoed"
	OutcomeSkipped  ConsultOutcome = "skipped"
	OutcomeFiltered ConsultOutcome = "filtered"
)

// TacticRunModel 一次完整的战术生成记录。
type TacticRunModel struct {
	ID           string    `gorm:"column:id;primaryKey;size:36"`
	Status       string    `gorm:"column:status;size:16;index"`
	Symbol       string    `gorm:"column:symbol;size:16"`
	ROIPct       float64   `gorm:"column:roi_pct"`
	MacroScore   float64   `gorm:"column:macro_score"`
	MacroMessage string    `gorm:"column:macro_message"`
	Cash         float64   `gorm:"column:cash"`
	Rationale    string    `gorm:"column:rationale;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;index"`
}

func (TacticRunModel) TableName() string { return "tactic_runs" }

// ConsultationModel 战术生成过程中对单一候选的咨询明细。
type ConsultationModel struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement"`
	RunID         string    `gorm:"column:run_id;size:36;index"`
	Rank          int       `gorm:"column:rank"`
	Symbol        string    `gorm:"column:symbol;size:16"`
	ROIPct        float64   `gorm:"column:roi_pct"`
	Outcome       string    `gorm:"column:outcome;size:16"`
	MatchedPhrase string    `gorm:"column:matched_phrase;size:64"`
	Excerpt       string    `gorm:"column:excerpt;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (ConsultationModel) TableName() string { return "consultations" }

// Store 基于 Gorm + SQLite 的决策日志存储。
type Store struct {
	db *gorm.DB
}

// Open 打开（必要时建立）决策日志数据库。
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("decision log: 数据库路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("decision log: 建立目录失败: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&TacticRunModel{}, &ConsultationModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：保留少量并行供 HTTP 读取，同时压低锁竞争
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewRunID 生成一次战术生成的识别码。
func NewRunID() string { return uuid.NewString() }

// SaveRun 原子写入一次战术生成与其全部咨询明细。
func (s *Store) SaveRun(ctx context.Context, run TacticRunModel, consultations []ConsultationModel) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("save tactic run failed: %w", err)
		}
		for i := range consultations {
			consultations[i].RunID = run.ID
			if consultations[i].CreatedAt.IsZero() {
				consultations[i].CreatedAt = run.CreatedAt
			}
		}
		if len(consultations) > 0 {
			if err := tx.Create(&consultations).Error; err != nil {
				return fmt.Errorf("save consultations failed: %w", err)
			}
		}
		return nil
	})
}

// LatestRun 读取最近一次战术生成及其咨询明细；无记录时返回 (nil, nil, nil)。
func (s *Store) LatestRun(ctx context.Context) (*TacticRunModel, []ConsultationModel, error) {
	var run TacticRunModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var consultations []ConsultationModel
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", run.ID).
		Order("rank ASC").
		Find(&consultations).Error; err != nil {
		return nil, nil, err
	}
	return &run, consultations, nil
}

// RunsSince 读取某时点之后的全部战术生成（升序），供复盘比对。
func (s *Store) RunsSince(ctx context.Context, since time.Time) ([]TacticRunModel, error) {
	var runs []TacticRunModel
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&runs).Error
	return runs, err
}
