// Package envelope owns the envelope lifecycle: creation-time validation
// of the signing order, the draft -> sent -> {completed, rejected} state
// machine, and the membership-scoped read paths.
package envelope

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
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

// ValidateSigningOrder checks the creation-time invariant: well-formed
// signer ids, positive orders forming exactly {1..n}, no duplicate signer,
// and every signer existing. An empty order is valid.
func ValidateSigningOrder(db *gorm.DB, order models.SigningOrder) error {
	if len(order) == 0 {
		return nil
	}
	seenSigners := make(map[string]bool, len(order))
	seenOrders := make(map[int]bool, len(order))
	orders := make([]int, 0, len(order))
	for i, e := range order {
		if _, err := uuid.Parse(e.SignerID); err != nil {
			return apperr.ErrValidation.Newf("entry %d: signer_id must be a valid uuid", i)
		}
		if e.Order < 1 {
			return apperr.ErrValidation.Newf("entry %d: order must be a positive integer", i)
		}
		if seenSigners[e.SignerID] {
			return apperr.ErrValidation.Newf("duplicate signer_id %s", e.SignerID)
		}
		seenSigners[e.SignerID] = true
		if seenOrders[e.Order] {
			return apperr.ErrValidation.Newf("duplicate order %d", e.Order)
		}
		seenOrders[e.Order] = true
		orders = append(orders, e.Order)
	}
	sort.Ints(orders)
	for i, o := range orders {
		if o != i+1 {
			return apperr.ErrValidation.New("orders must start at 1 and have no gaps")
		}
	}
	var count int64
	if err := db.Model(&models.User{}).Where("id IN ?", order.SignerIDs()).Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(order) {
		return apperr.ErrValidation.New("signing order references unknown users")
	}
	return nil
}

// Create validates the signing order and document ownership, then writes a
// draft envelope.
func (s *Service) Create(actorID, documentID string, order models.SigningOrder, meta *audit.RequestMeta) (*models.Envelope, error) {
	var doc models.Document
	if err := s.db.First(&doc, "id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrValidation.New("document does not exist")
		}
		return nil, err
	}
	if doc.OwnerID != actorID {
		return nil, apperr.ErrValidation.New("document does not belong to you")
	}
	if err := ValidateSigningOrder(s.db, order); err != nil {
		return nil, err
	}
	if order == nil {
		order = models.SigningOrder{}
	}
	env := models.Envelope{
		ID:           uuid.NewString(),
		DocumentID:   documentID,
		CreatorID:    actorID,
		Status:       models.EnvelopeStatusDraft,
		SigningOrder: order,
	}
	if err := s.db.Create(&env).Error; err != nil {
		return nil, err
	}
	s.audit.Record(&actorID, audit.ActionCreateEnvelope, audit.Target{Kind: audit.KindEnvelope, ID: env.ID},
		fmt.Sprintf("Envelope created for document '%s' with %d signer(s).", doc.FileName, len(order)), meta)
	return &env, nil
}

// Send flips draft -> sent and materializes one pending signature slot per
// signing-order entry, atomically. The first signer is then notified.
func (s *Service) Send(actorID, envelopeID string, meta *audit.RequestMeta) (*models.Envelope, error) {
	env, err := s.load(envelopeID)
	if err != nil {
		return nil, err
	}
	if env.CreatorID != actorID {
		return nil, apperr.ErrPermission.New("only the creator can send an envelope")
	}
	if env.Status != models.EnvelopeStatusDraft {
		return nil, apperr.ErrConflict.Newf("only draft envelopes can be sent, current status is %s", env.Status)
	}

	sigs := materializeSignatures(env)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Envelope{}).
			Where("id = ? AND status = ?", env.ID, models.EnvelopeStatusDraft).
			Update("status", models.EnvelopeStatusSent)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict.New("envelope is no longer in draft")
		}
		if len(sigs) > 0 {
			if err := tx.Create(&sigs).Error; err != nil {
				return err
			}
		}
		return store.SetDocumentStatus(tx, env.DocumentID, models.EnvelopeStatusSent)
	})
	if err != nil {
		return nil, err
	}
	env.Status = models.EnvelopeStatusSent

	var doc models.Document
	_ = s.db.First(&doc, "id = ?", env.DocumentID).Error
	s.audit.Record(&actorID, audit.ActionSendEnvelope, audit.Target{Kind: audit.KindEnvelope, ID: env.ID},
		fmt.Sprintf("Envelope for document '%s' sent to %d signer(s).", doc.FileName, len(sigs)), meta)
	if len(sigs) > 0 {
		creatorName := store.UserDisplayName(s.db, env.CreatorID)
		s.notif.Send(sigs[0].SignerID, notify.EnvelopeSentMessage(creatorName, doc.FileName))
	}
	return env, nil
}

// Reject cancels an envelope from draft or sent. Completed and rejected
// are terminal.
func (s *Service) Reject(actorID, envelopeID string, meta *audit.RequestMeta) (*models.Envelope, error) {
	env, err := s.load(envelopeID)
	if err != nil {
		return nil, err
	}
	if env.CreatorID != actorID {
		return nil, apperr.ErrPermission.New("only the creator can reject an envelope")
	}
	if env.Status != models.EnvelopeStatusDraft && env.Status != models.EnvelopeStatusSent {
		return nil, apperr.ErrConflict.Newf("cannot reject an envelope in status %s", env.Status)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Envelope{}).
			Where("id = ? AND status IN ?", env.ID, []string{models.EnvelopeStatusDraft, models.EnvelopeStatusSent}).
			Update("status", models.EnvelopeStatusRejected)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict.New("envelope is already in a terminal status")
		}
		return store.SetDocumentStatus(tx, env.DocumentID, models.EnvelopeStatusRejected)
	})
	if err != nil {
		return nil, err
	}
	env.Status = models.EnvelopeStatusRejected

	var doc models.Document
	_ = s.db.First(&doc, "id = ?", env.DocumentID).Error
	s.audit.Record(&actorID, audit.ActionRejectEnvelope, audit.Target{Kind: audit.KindEnvelope, ID: env.ID},
		fmt.Sprintf("Envelope for document '%s' rejected by creator.", doc.FileName), meta)

	// Cancellation notices go to everyone with a signature slot, which is
	// nobody when the envelope never left draft.
	var sigs []models.Signature
	if err := s.db.Where("envelope_id = ?", env.ID).Find(&sigs).Error; err == nil && len(sigs) > 0 {
		creatorName := store.UserDisplayName(s.db, env.CreatorID)
		msg := notify.EnvelopeRejectedMessage(creatorName, doc.FileName)
		for _, sig := range sigs {
			s.notif.Send(sig.SignerID, msg)
		}
	}
	return env, nil
}

// ListFor returns every envelope the user created or signs, newest first.
func (s *Service) ListFor(userID string) ([]models.Envelope, error) {
	var all []models.Envelope
	if err := s.db.Preload("Signatures", func(db *gorm.DB) *gorm.DB {
		return db.Order("signer_order asc")
	}).Order("created_at desc").Find(&all).Error; err != nil {
		return nil, err
	}
	// Signer membership lives inside the jsonb column, so filter in Go
	// rather than leaning on dialect-specific json operators.
	out := make([]models.Envelope, 0, len(all))
	for i := range all {
		if access.CanView(userID, &all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// GetFor returns an envelope with its signatures if the user is a member.
// Absence and denied access are deliberately the same not-found error.
func (s *Service) GetFor(userID, envelopeID string) (*models.Envelope, error) {
	var env models.Envelope
	err := s.db.Preload("Signatures", func(db *gorm.DB) *gorm.DB {
		return db.Order("signer_order asc")
	}).First(&env, "id = ?", envelopeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.New("envelope not found or access denied")
		}
		return nil, err
	}
	if !access.CanView(userID, &env) {
		return nil, apperr.ErrNotFound.New("envelope not found or access denied")
	}
	return &env, nil
}

func (s *Service) load(envelopeID string) (*models.Envelope, error) {
	var env models.Envelope
	if err := s.db.First(&env, "id = ?", envelopeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.New("envelope not found")
		}
		return nil, err
	}
	return &env, nil
}

func materializeSignatures(env *models.Envelope) []models.Signature {
	entries := make(models.SigningOrder, len(env.SigningOrder))
	copy(entries, env.SigningOrder)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })
	sigs := make([]models.Signature, 0, len(entries))
	for _, e := range entries {
		sigs = append(sigs, models.Signature{
			ID:          uuid.NewString(),
			EnvelopeID:  env.ID,
			SignerID:    e.SignerID,
			SignerOrder: e.Order,
			Status:      models.SignatureStatusPending,
		})
	}
	return sigs
}
