// Package access centralizes the visibility and turn predicates shared by
// the envelope and signing services. Keeping them in one place keeps the
// "404 for outsiders, 403 for members out of turn" policy consistent.
package access

import "signflow/internal/models"

// CanView reports whether userID may see the envelope: the creator and
// every listed signer may, nobody else.
func CanView(userID string, env *models.Envelope) bool {
	if env == nil {
		return false
	}
	return userID == env.CreatorID || env.SigningOrder.Contains(userID)
}

// CanActAsCurrentSigner reports whether userID may sign or decline right
// now. current is the lowest-order pending signature, nil when none exists.
func CanActAsCurrentSigner(userID string, env *models.Envelope, current *models.Signature) bool {
	if !CanView(userID, env) {
		return false
	}
	if env.Status != models.EnvelopeStatusSent {
		return false
	}
	return current != nil && current.SignerID == userID
}
