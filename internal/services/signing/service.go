// Package signing owns the per-signer signature lifecycle: the current
// signer derivation, turn advancement, the envelope completion and
// rejection triggers, and the reusable signature image assets.
package signing

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"signflow/internal/apperr"
	"signflow/internal/audit"
	"signflow/internal/models"
	"signflow/internal/notify"
	"signflow/internal/services/access"
	"signflow/internal/store"
)

type Service struct {
	db    *gorm.DB
	lg    *zap.SugaredLogger
	notif *notify.Notifier
	audit *audit.Recorder
}

func NewService(db *gorm.DB, lg *zap.SugaredLogger, notif *notify.Notifier, rec *audit.Recorder) *Service {
	return &Service{db: db, lg: lg, notif: notif, audit: rec}
}

// CurrentSigner returns the pending signature with the lowest order for an
// envelope, or nil when no pending signature exists. The current signer is
// always derived from rows, never cached.
func CurrentSigner(db *gorm.DB, envelopeID string) (*models.Signature, error) {
	var sig models.Signature
	err := db.Where("envelope_id = ? AND status = ?", envelopeID, models.SignatureStatusPending).
		Order("signer_order asc").First(&sig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

// Sign records the current signer's signature. The last signer completes
// the envelope; otherwise the next signer is notified it is their turn.
func (s *Service) Sign(actorID, envelopeID string, imageBytes []byte, userSignatureID string, meta *audit.RequestMeta) (*models.Signature, error) {
	env, err := s.loadVisible(actorID, envelopeID)
	if err != nil {
		return nil, err
	}
	if env.Status != models.EnvelopeStatusSent {
		return nil, apperr.ErrConflict.Newf("envelope must be sent to sign, current status is %s", env.Status)
	}

	var signed models.Signature
	completed := false
	var next *models.Signature
	err = s.db.Transaction(func(tx *gorm.DB) error {
		current, err := CurrentSigner(tx, env.ID)
		if err != nil {
			return err
		}
		if !access.CanActAsCurrentSigner(actorID, env, current) {
			return apperr.ErrPermission.New("it is not your turn to sign")
		}
		image, err := ResolveSignatureImage(tx, actorID, imageBytes, userSignatureID)
		if err != nil {
			return err
		}
		now := time.Now()
		res := tx.Model(&models.Signature{}).
			Where("id = ? AND status = ?", current.ID, models.SignatureStatusPending).
			Updates(map[string]any{
				"status":          models.SignatureStatusSigned,
				"signature_image": image,
				"signed_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost a race against a concurrent submission: the actor is
			// no longer current.
			return apperr.ErrPermission.New("it is not your turn to sign")
		}
		signed = *current
		signed.Status = models.SignatureStatusSigned
		signed.SignatureImage = image
		signed.SignedAt = &now

		next, err = CurrentSigner(tx, env.ID)
		if err != nil {
			return err
		}
		if next == nil {
			res := tx.Model(&models.Envelope{}).
				Where("id = ? AND status = ?", env.ID, models.EnvelopeStatusSent).
				Update("status", models.EnvelopeStatusCompleted)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperr.ErrConflict.New("envelope left sent status mid-signing")
			}
			completed = true
			return store.SetDocumentStatus(tx, env.DocumentID, models.EnvelopeStatusCompleted)
		}
		// Touch the envelope row under the same guard so a concurrent
		// reject cannot slip between the signature write and commit.
		res = tx.Model(&models.Envelope{}).
			Where("id = ? AND status = ?", env.ID, models.EnvelopeStatusSent).
			Update("updated_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict.New("envelope left sent status mid-signing")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var doc models.Document
	_ = s.db.First(&doc, "id = ?", env.DocumentID).Error
	actorName := store.UserDisplayName(s.db, actorID)
	s.audit.Record(&actorID, audit.ActionSignDoc, audit.Target{Kind: audit.KindSignature, ID: signed.ID},
		fmt.Sprintf("User %s signed envelope %s for document '%s'.", actorName, env.ID, doc.FileName), meta)
	if completed {
		s.notif.Send(env.CreatorID, notify.EnvelopeCompletedMessage(doc.FileName))
	} else if next != nil {
		s.notif.Send(next.SignerID, notify.SignerTurnMessage(doc.FileName))
	}
	return &signed, nil
}

// Decline records the current signer's refusal and rejects the envelope.
// Other signatures are left exactly as they were.
func (s *Service) Decline(actorID, envelopeID string, meta *audit.RequestMeta) (*models.Signature, error) {
	env, err := s.loadVisible(actorID, envelopeID)
	if err != nil {
		return nil, err
	}
	if env.Status != models.EnvelopeStatusSent {
		return nil, apperr.ErrConflict.Newf("envelope must be sent to decline, current status is %s", env.Status)
	}

	var declined models.Signature
	err = s.db.Transaction(func(tx *gorm.DB) error {
		current, err := CurrentSigner(tx, env.ID)
		if err != nil {
			return err
		}
		if !access.CanActAsCurrentSigner(actorID, env, current) {
			return apperr.ErrPermission.New("it is not your turn to decline")
		}
		res := tx.Model(&models.Signature{}).
			Where("id = ? AND status = ?", current.ID, models.SignatureStatusPending).
			Update("status", models.SignatureStatusDeclined)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrPermission.New("it is not your turn to decline")
		}
		declined = *current
		declined.Status = models.SignatureStatusDeclined

		res = tx.Model(&models.Envelope{}).
			Where("id = ? AND status = ?", env.ID, models.EnvelopeStatusSent).
			Update("status", models.EnvelopeStatusRejected)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict.New("envelope left sent status mid-decline")
		}
		return store.SetDocumentStatus(tx, env.DocumentID, models.EnvelopeStatusRejected)
	})
	if err != nil {
		return nil, err
	}

	var doc models.Document
	_ = s.db.First(&doc, "id = ?", env.DocumentID).Error
	actorName := store.UserDisplayName(s.db, actorID)
	s.audit.Record(&actorID, audit.ActionDeclineSign, audit.Target{Kind: audit.KindSignature, ID: declined.ID},
		fmt.Sprintf("User %s declined to sign envelope %s for document '%s'.", actorName, env.ID, doc.FileName), meta)
	s.notif.Send(env.CreatorID, notify.SignerDeclinedMessage(actorName, doc.FileName))
	return &declined, nil
}

// loadVisible fetches an envelope the actor may see. Outsiders get the
// same not-found as true absence.
func (s *Service) loadVisible(actorID, envelopeID string) (*models.Envelope, error) {
	var env models.Envelope
	if err := s.db.First(&env, "id = ?", envelopeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.New("envelope not found or access denied")
		}
		return nil, err
	}
	if !access.CanView(actorID, &env) {
		return nil, apperr.ErrNotFound.New("envelope not found or access denied")
	}
	return &env, nil
}
