// Package store holds the storage helpers that do not belong to one
// service: user lookups consumed across components, the document status
// mirror, and the explicit cascade deletion routines.
package store

import (
	"errors"

	"gorm.io/gorm"

	"signflow/internal/models"
)

// UserExists reports whether a user row with the given id exists.
func UserExists(db *gorm.DB, id string) (bool, error) {
	var count int64
	err := db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UserDisplayName resolves a user's display name; unknown users come back
// as an empty string.
func UserDisplayName(db *gorm.DB, id string) string {
	var u models.User
	if err := db.Select("id", "full_name", "email").First(&u, "id = ?", id).Error; err != nil {
		return ""
	}
	return u.DisplayName()
}

// SetDocumentStatus mirrors an envelope transition onto the document row.
func SetDocumentStatus(db *gorm.DB, id, status string) error {
	return db.Model(&models.Document{}).Where("id = ?", id).Update("status", status).Error
}

// DeleteDocumentCascade removes a document together with its envelopes and
// their signatures, all in one transaction. Cascades are explicit here
// instead of database triggers so the side effects stay unit-testable.
func DeleteDocumentCascade(db *gorm.DB, documentID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var envelopeIDs []string
		if err := tx.Model(&models.Envelope{}).Where("document_id = ?", documentID).Pluck("id", &envelopeIDs).Error; err != nil {
			return err
		}
		if len(envelopeIDs) > 0 {
			if err := tx.Where("envelope_id IN ?", envelopeIDs).Delete(&models.Signature{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", envelopeIDs).Delete(&models.Envelope{}).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", documentID).Delete(&models.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteUserCascade removes a user and everything hanging off them:
// envelopes they created (with signatures), signature slots where they are
// a signer, reusable signature images, notifications and sessions. Their
// documents go through the document cascade. Audit rows survive with the
// actor nulled out.
func DeleteUserCascade(db *gorm.DB, userID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var docIDs []string
		if err := tx.Model(&models.Document{}).Where("owner_id = ?", userID).Pluck("id", &docIDs).Error; err != nil {
			return err
		}
		for _, id := range docIDs {
			if err := DeleteDocumentCascade(tx, id); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		var envelopeIDs []string
		if err := tx.Model(&models.Envelope{}).Where("creator_id = ?", userID).Pluck("id", &envelopeIDs).Error; err != nil {
			return err
		}
		if len(envelopeIDs) > 0 {
			if err := tx.Where("envelope_id IN ?", envelopeIDs).Delete(&models.Signature{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", envelopeIDs).Delete(&models.Envelope{}).Error; err != nil {
				return err
			}
		}
		for _, m := range []any{&models.Signature{}, &models.UserSignature{}, &models.Notification{}, &models.Session{}} {
			col := "user_id = ?"
			if _, ok := m.(*models.Signature); ok {
				col = "signer_id = ?"
			}
			if err := tx.Where(col, userID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.AuditLog{}).Where("actor_id = ?", userID).Update("actor_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).Delete(&models.User{}).Error
	})
}
