package engine

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sactech816/integration-app-sub010/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a file-backed sqlite database in the test's temp dir. A
// single connection plus busy timeout keeps concurrent writers serialized the
// same way a real database would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine_test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Operator{},
		&models.Campaign{},
		&models.Prize{},
		&models.CampaignStamp{},
		&models.DrawOutcome{},
		&models.PointLedgerEntry{},
		&models.ParticipantBalance{},
		&models.Mission{},
		&models.MissionProgress{},
		&models.StampProgress{},
		&models.GuestSession{},
	))
	return db
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(db, log, nil), db
}

func activeCampaign(t *testing.T, db *gorm.DB, campaignType string) *models.Campaign {
	t.Helper()
	camp := &models.Campaign{
		Title:    "Test Campaign",
		Type:     campaignType,
		Status:   models.CampaignStatusActive,
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(camp).Error)
	return camp
}

func addPrize(t *testing.T, db *gorm.DB, campaignID uint, name string, weight int, winning bool, points int64, stock *int) *models.Prize {
	t.Helper()
	p := &models.Prize{
		CampaignID: campaignID,
		Name:       name,
		Weight:     weight,
		IsWinning:  winning,
		Points:     points,
		Stock:      stock,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func intPtr(n int) *int { return &n }
