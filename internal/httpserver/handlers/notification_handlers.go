package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signflow/internal/auth"
	"signflow/internal/models"
)

func ListNotifications(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		var rows []models.Notification
		if err := db.Where("user_id = ?", uid).Order("created_at desc").Find(&rows).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, rows)
	}
}

// MarkNotificationRead flips is_read for the recipient. A notification
// someone else owns looks exactly like a missing one.
func MarkNotificationRead(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		id := chi.URLParam(r, "id")
		var n models.Notification
		if err := db.First(&n, "id = ? AND user_id = ?", id, uid).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if !n.IsRead {
			if err := db.Model(&n).Update("is_read", true).Error; err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			n.IsRead = true
		}
		respondJSON(w, n)
	}
}
