package signing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"signflow/internal/apperr"
	"signflow/internal/audit"
	"signflow/internal/models"
	"signflow/internal/store"
)

// ListUserSignatures returns the owner's reusable signatures, newest first.
func (s *Service) ListUserSignatures(ownerID string) ([]models.UserSignature, error) {
	var sigs []models.UserSignature
	err := s.db.Where("user_id = ?", ownerID).Order("created_at desc").Find(&sigs).Error
	return sigs, err
}

// CreateUserSignature stores a new reusable signature image. Setting it as
// default clears any prior default in the same transaction.
func (s *Service) CreateUserSignature(ownerID string, image []byte, isDefault bool, meta *audit.RequestMeta) (*models.UserSignature, error) {
	if len(image) == 0 {
		return nil, apperr.ErrValidation.New("image is required")
	}
	if err := validateImage(image); err != nil {
		return nil, err
	}
	us := models.UserSignature{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Image:     image,
		IsDefault: isDefault,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if isDefault {
			if err := clearDefault(tx, ownerID); err != nil {
				return err
			}
		}
		return tx.Create(&us).Error
	})
	if err != nil {
		return nil, err
	}
	actorName := store.UserDisplayName(s.db, ownerID)
	s.audit.Record(&ownerID, audit.ActionCreateUserSignature, audit.Target{Kind: audit.KindUserSignature, ID: us.ID},
		fmt.Sprintf("User %s created a new signature.", actorName), meta)
	return &us, nil
}

// UpdateUserSignature changes the image and/or default flag of an owned
// signature. A nil isDefault leaves the flag untouched.
func (s *Service) UpdateUserSignature(ownerID, id string, image []byte, isDefault *bool, meta *audit.RequestMeta) (*models.UserSignature, error) {
	var us models.UserSignature
	if err := s.db.First(&us, "id = ? AND user_id = ?", id, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.New("signature not found")
		}
		return nil, err
	}
	if len(image) > 0 {
		if err := validateImage(image); err != nil {
			return nil, err
		}
		us.Image = image
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if isDefault != nil {
			if *isDefault && !us.IsDefault {
				if err := clearDefault(tx, ownerID); err != nil {
					return err
				}
			}
			us.IsDefault = *isDefault
		}
		return tx.Save(&us).Error
	})
	if err != nil {
		return nil, err
	}
	actorName := store.UserDisplayName(s.db, ownerID)
	s.audit.Record(&ownerID, audit.ActionUpdateUserSignature, audit.Target{Kind: audit.KindUserSignature, ID: us.ID},
		fmt.Sprintf("User %s updated signature %s.", actorName, us.ID), meta)
	return &us, nil
}

// DeleteUserSignature removes an owned signature.
func (s *Service) DeleteUserSignature(ownerID, id string, meta *audit.RequestMeta) error {
	res := s.db.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.UserSignature{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound.New("signature not found")
	}
	actorName := store.UserDisplayName(s.db, ownerID)
	s.audit.Record(&ownerID, audit.ActionDeleteUserSignature, audit.Target{Kind: audit.KindUserSignature, ID: id},
		fmt.Sprintf("User %s deleted signature %s.", actorName, id), meta)
	return nil
}

func clearDefault(tx *gorm.DB, ownerID string) error {
	return tx.Model(&models.UserSignature{}).
		Where("user_id = ? AND is_default = ?", ownerID, true).
		Update("is_default", false).Error
}
