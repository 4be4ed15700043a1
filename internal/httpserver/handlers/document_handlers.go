package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signflow/internal/audit"
	"signflow/internal/auth"
	"signflow/internal/models"
	"signflow/internal/store"
)

// CreateDocument registers document metadata. The binary lives in external
// storage; file_url points at it.
func CreateDocument(db *gorm.DB, lg *zap.SugaredLogger, rec *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FileName string `json:"file_name"`
			FileURL  string `json:"file_url"`
			FileSize int64  `json:"file_size"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.FileName = strings.TrimSpace(req.FileName)
		if req.FileName == "" {
			http.Error(w, "file_name required", http.StatusBadRequest)
			return
		}
		if utf8.RuneCountInString(req.FileName) > 255 {
			http.Error(w, "file_name must be <= 255 characters", http.StatusBadRequest)
			return
		}
		if req.FileSize < 0 {
			http.Error(w, "file_size must not be negative", http.StatusBadRequest)
			return
		}
		uid := auth.Subject(r.Context())
		doc := models.Document{
			ID:       uuid.NewString(),
			OwnerID:  uid,
			FileName: req.FileName,
			FileURL:  strings.TrimSpace(req.FileURL),
			FileSize: req.FileSize,
			Status:   models.EnvelopeStatusDraft,
		}
		if err := db.Create(&doc).Error; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec.Record(&uid, audit.ActionUploadDoc, audit.Target{Kind: audit.KindDocument, ID: doc.ID},
			fmt.Sprintf("Document '%s' registered.", doc.FileName), audit.MetaFromRequest(r))
		respondCreated(w, doc)
	}
}

func ListDocuments(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		var docs []models.Document
		if err := db.Where("owner_id = ?", uid).Order("created_at desc").Find(&docs).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, docs)
	}
}

func GetDocument(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		id := chi.URLParam(r, "id")
		var doc models.Document
		if err := db.First(&doc, "id = ? AND owner_id = ?", id, uid).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		respondJSON(w, doc)
	}
}

// DeleteDocument removes an owned document along with its envelopes and
// signatures through the explicit cascade.
func DeleteDocument(db *gorm.DB, lg *zap.SugaredLogger, rec *audit.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		id := chi.URLParam(r, "id")
		var doc models.Document
		if err := db.First(&doc, "id = ? AND owner_id = ?", id, uid).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := store.DeleteDocumentCascade(db, doc.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rec.Record(&uid, audit.ActionDeleteDoc, audit.Target{Kind: audit.KindDocument, ID: doc.ID},
			fmt.Sprintf("Document '%s' deleted.", doc.FileName), audit.MetaFromRequest(r))
		respondJSON(w, map[string]any{"deleted": true})
	}
}
