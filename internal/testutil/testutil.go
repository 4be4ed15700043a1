// Package testutil provides the shared test fixtures: an isolated
// in-memory database per test, a quiet logger, a synchronous task
// enqueuer and a tiny valid PNG.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"signflow/internal/models"
	"signflow/internal/tasks"
)

var dbSeq atomic.Int64

// NewDB opens a fresh in-memory database with the full schema migrated.
// Each call gets its own named shared-cache database so parallel tests do
// not collide.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:signflow_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// Logger returns a no-op sugared logger.
func Logger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// SyncEnqueuer runs every task inline, so notification side effects are
// visible as soon as the triggering call returns.
type SyncEnqueuer struct{}

func (SyncEnqueuer) Enqueue(name string, fn tasks.Func) {
	_ = fn(context.Background())
}

// CreateUser inserts a user row and returns it.
func CreateUser(t *testing.T, db *gorm.DB, email, fullName string) models.User {
	t.Helper()
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: "x",
		IsActive:     true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateDocument inserts a draft document owned by ownerID.
func CreateDocument(t *testing.T, db *gorm.DB, ownerID, fileName string) models.Document {
	t.Helper()
	doc := models.Document{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		FileName: fileName,
		FileURL:  "s3://bucket/" + fileName,
		FileSize: 1024,
		Status:   models.EnvelopeStatusDraft,
	}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

// PNG returns a minimal valid PNG image.
func PNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
