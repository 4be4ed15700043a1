package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signflow/internal/models"
	"signflow/internal/services/access"
)

func envFixture(status string) *models.Envelope {
	return &models.Envelope{
		ID:        "e1",
		CreatorID: "creator",
		Status:    status,
		SigningOrder: models.SigningOrder{
			{SignerID: "alice", Order: 1},
			{SignerID: "bob", Order: 2},
		},
	}
}

func TestCanView(t *testing.T) {
	env := envFixture(models.EnvelopeStatusSent)
	assert.True(t, access.CanView("creator", env))
	assert.True(t, access.CanView("alice", env))
	assert.True(t, access.CanView("bob", env))
	assert.False(t, access.CanView("mallory", env))
	assert.False(t, access.CanView("creator", nil))
}

func TestCanActAsCurrentSigner(t *testing.T) {
	env := envFixture(models.EnvelopeStatusSent)
	current := &models.Signature{SignerID: "alice", SignerOrder: 1, Status: models.SignatureStatusPending}

	assert.True(t, access.CanActAsCurrentSigner("alice", env, current))
	// Member but not current.
	assert.False(t, access.CanActAsCurrentSigner("bob", env, current))
	// Creator is not a signer.
	assert.False(t, access.CanActAsCurrentSigner("creator", env, current))
	// Outsider.
	assert.False(t, access.CanActAsCurrentSigner("mallory", env, current))
	// No pending signature left.
	assert.False(t, access.CanActAsCurrentSigner("alice", env, nil))
	// Wrong envelope status.
	draft := envFixture(models.EnvelopeStatusDraft)
	assert.False(t, access.CanActAsCurrentSigner("alice", draft, current))
}
