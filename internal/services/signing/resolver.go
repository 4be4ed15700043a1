package signing

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"gorm.io/gorm"

	"signflow/internal/apperr"
	"signflow/internal/models"
)

// ResolveSignatureImage picks the image bytes for a signing act with strict
// priority: explicit bytes, then an explicit UserSignature id, then the
// actor's default. Supplying both explicit sources is rejected instead of
// silently preferring one.
func ResolveSignatureImage(db *gorm.DB, actorID string, imageBytes []byte, userSignatureID string) ([]byte, error) {
	if len(imageBytes) > 0 && userSignatureID != "" {
		return nil, apperr.ErrValidation.New("provide either signature_image or signature_id, not both")
	}
	if len(imageBytes) > 0 {
		if err := validateImage(imageBytes); err != nil {
			return nil, err
		}
		return imageBytes, nil
	}
	if userSignatureID != "" {
		var us models.UserSignature
		err := db.First(&us, "id = ? AND user_id = ?", userSignatureID, actorID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrValidation.New("signature not found or does not belong to you")
		}
		if err != nil {
			return nil, err
		}
		return us.Image, nil
	}
	var def models.UserSignature
	err := db.First(&def, "user_id = ? AND is_default = ?", actorID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrValidation.New("no signature provided and no default signature found")
	}
	if err != nil {
		return nil, err
	}
	return def.Image, nil
}

// validateImage rejects bytes that do not decode as png, jpeg or gif.
func validateImage(data []byte) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return apperr.ErrValidation.New("signature_image is not valid image data")
	}
	return nil
}
