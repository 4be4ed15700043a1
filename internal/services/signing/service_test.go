package signing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"signflow/internal/apperr"
	"signflow/internal/audit"
	"signflow/internal/models"
	"signflow/internal/notify"
	"signflow/internal/services/envelope"
	"signflow/internal/services/signing"
	"signflow/internal/testutil"
)

type fixture struct {
	db      *gorm.DB
	envSvc  *envelope.Service
	signSvc *signing.Service
	creator models.User
	doc     models.Document
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	notifier := notify.New(db, testutil.Logger(), testutil.SyncEnqueuer{})
	rec := audit.NewRecorder(db, testutil.Logger())
	f := &fixture{
		db:      db,
		envSvc:  envelope.NewService(db, testutil.Logger(), notifier, rec),
		signSvc: signing.NewService(db, testutil.Logger(), notifier, rec),
	}
	f.creator = testutil.CreateUser(t, db, "creator@example.com", "Creator")
	f.doc = testutil.CreateDocument(t, db, f.creator.ID, "lease.pdf")
	return f
}

// sentEnvelope creates and sends an envelope with the given signers in
// declaration order.
func (f *fixture) sentEnvelope(t *testing.T, signers ...models.User) *models.Envelope {
	t.Helper()
	order := make(models.SigningOrder, 0, len(signers))
	for i, u := range signers {
		order = append(order, models.SignerEntry{SignerID: u.ID, Order: i + 1})
	}
	env, err := f.envSvc.Create(f.creator.ID, f.doc.ID, order, nil)
	require.NoError(t, err)
	env, err = f.envSvc.Send(f.creator.ID, env.ID, nil)
	require.NoError(t, err)
	return env
}

func (f *fixture) giveDefaultSignature(t *testing.T, u models.User) {
	t.Helper()
	_, err := f.signSvc.CreateUserSignature(u.ID, testutil.PNG(t), true, nil)
	require.NoError(t, err)
}

func TestSignAdvancesTurn(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	b := testutil.CreateUser(t, f.db, "b@example.com", "B")
	env := f.sentEnvelope(t, a, b)

	sig, err := f.signSvc.Sign(a.ID, env.ID, testutil.PNG(t), "", nil)
	require.NoError(t, err)
	assert.Equal(t, models.SignatureStatusSigned, sig.Status)
	require.NotNil(t, sig.SignedAt)
	assert.NotEmpty(t, sig.SignatureImage)

	var got models.Envelope
	require.NoError(t, f.db.First(&got, "id = ?", env.ID).Error)
	assert.Equal(t, models.EnvelopeStatusSent, got.Status)

	current, err := signing.CurrentSigner(f.db, env.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, b.ID, current.SignerID)

	// B got the turn notification.
	var notes []models.Notification
	require.NoError(t, f.db.Where("user_id = ? AND message = ?", b.ID,
		notify.SignerTurnMessage("lease.pdf")).Find(&notes).Error)
	assert.Len(t, notes, 1)

	// SIGN_DOC was recorded.
	var entry models.AuditLog
	require.NoError(t, f.db.First(&entry, "action = ?", audit.ActionSignDoc).Error)
	assert.Equal(t, audit.KindSignature, entry.TargetKind)
}

func TestLastSignerCompletesEnvelope(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	env := f.sentEnvelope(t, a)

	_, err := f.signSvc.Sign(a.ID, env.ID, testutil.PNG(t), "", nil)
	require.NoError(t, err)

	var got models.Envelope
	require.NoError(t, f.db.First(&got, "id = ?", env.ID).Error)
	assert.Equal(t, models.EnvelopeStatusCompleted, got.Status)

	var gotDoc models.Document
	require.NoError(t, f.db.First(&gotDoc, "id = ?", f.doc.ID).Error)
	assert.Equal(t, models.EnvelopeStatusCompleted, gotDoc.Status)

	current, err := signing.CurrentSigner(f.db, env.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	// Creator got the completion notice.
	var notes []models.Notification
	require.NoError(t, f.db.Where("user_id = ? AND message = ?", f.creator.ID,
		notify.EnvelopeCompletedMessage("lease.pdf")).Find(&notes).Error)
	assert.Len(t, notes, 1)
}

func TestThreeSignerDeclineScenario(t *testing.T) {
	// [A(1), B(2), C(3)]: A signs, B declines, C stays pending.
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	b := testutil.CreateUser(t, f.db, "b@example.com", "B")
	c := testutil.CreateUser(t, f.db, "c@example.com", "C")
	env := f.sentEnvelope(t, a, b, c)

	_, err := f.signSvc.Sign(a.ID, env.ID, testutil.PNG(t), "", nil)
	require.NoError(t, err)
	current, err := signing.CurrentSigner(f.db, env.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, b.ID, current.SignerID)

	declined, err := f.signSvc.Decline(b.ID, env.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SignatureStatusDeclined, declined.Status)

	var got models.Envelope
	require.NoError(t, f.db.First(&got, "id = ?", env.ID).Error)
	assert.Equal(t, models.EnvelopeStatusRejected, got.Status)

	// C's slot is frozen pending, not auto-declined; A's stays signed.
	var sigs []models.Signature
	require.NoError(t, f.db.Where("envelope_id = ?", env.ID).Order("signer_order asc").Find(&sigs).Error)
	require.Len(t, sigs, 3)
	assert.Equal(t, models.SignatureStatusSigned, sigs[0].Status)
	assert.Equal(t, models.SignatureStatusDeclined, sigs[1].Status)
	assert.Equal(t, models.SignatureStatusPending, sigs[2].Status)

	// Creator was told who declined.
	var notes []models.Notification
	require.NoError(t, f.db.Where("user_id = ? AND message = ?", f.creator.ID,
		notify.SignerDeclinedMessage("B", "lease.pdf")).Find(&notes).Error)
	assert.Len(t, notes, 1)

	var entry models.AuditLog
	require.NoError(t, f.db.First(&entry, "action = ?", audit.ActionDeclineSign).Error)
	assert.Equal(t, declined.ID, entry.TargetID)
}

func TestOutOfTurnSignersAreRejected(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	b := testutil.CreateUser(t, f.db, "b@example.com", "B")
	env := f.sentEnvelope(t, a, b)

	// Future signer.
	_, err := f.signSvc.Sign(b.ID, env.ID, testutil.PNG(t), "", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrPermission))

	_, err = f.signSvc.Sign(a.ID, env.ID, testutil.PNG(t), "", nil)
	require.NoError(t, err)

	// Past signer: duplicate submission after their turn ended.
	_, err = f.signSvc.Sign(a.ID, env.ID, testutil.PNG(t), "", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrPermission))

	_, err = f.signSvc.Decline(a.ID, env.ID, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrPermission))
}

func TestSignRequiresSentEnvelope(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	env, err := f.envSvc.Create(f.creator.ID, f.doc.ID,
		models.SigningOrder{{SignerID: a.ID, Order: 1}}, nil)
	require.NoError(t, err)

	_, err = f.signSvc.Sign(a.ID, env.ID, testutil.PNG(t), "", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrConflict))

	_, err = f.signSvc.Decline(a.ID, env.ID, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrConflict))
}

func TestSignInvisibleEnvelopeIsNotFound(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	outsider := testutil.CreateUser(t, f.db, "outsider@example.com", "Outsider")
	env := f.sentEnvelope(t, a)

	_, err := f.signSvc.Sign(outsider.ID, env.ID, testutil.PNG(t), "", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))

	_, err = f.signSvc.Decline(outsider.ID, "0c9d8e7f-0000-4000-8000-00000000dead", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestSignUsesDefaultSignatureWhenNothingGiven(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	f.giveDefaultSignature(t, a)
	env := f.sentEnvelope(t, a)

	sig, err := f.signSvc.Sign(a.ID, env.ID, nil, "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sig.SignatureImage)
}

func TestSignWithoutAnySourceFails(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	env := f.sentEnvelope(t, a)

	_, err := f.signSvc.Sign(a.ID, env.ID, nil, "", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrValidation))

	// The failed resolution left the turn untouched.
	current, err := signing.CurrentSigner(f.db, env.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, a.ID, current.SignerID)
}

func TestDeclineWorksWithoutSignatureSource(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	env := f.sentEnvelope(t, a)

	declined, err := f.signSvc.Decline(a.ID, env.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.SignatureStatusDeclined, declined.Status)

	var got models.Envelope
	require.NoError(t, f.db.First(&got, "id = ?", env.ID).Error)
	assert.Equal(t, models.EnvelopeStatusRejected, got.Status)
}

func TestCurrentSignerNeverRepeats(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	b := testutil.CreateUser(t, f.db, "b@example.com", "B")
	c := testutil.CreateUser(t, f.db, "c@example.com", "C")
	env := f.sentEnvelope(t, a, b, c)

	seen := map[string]bool{}
	for {
		current, err := signing.CurrentSigner(f.db, env.ID)
		require.NoError(t, err)
		if current == nil {
			break
		}
		require.False(t, seen[current.SignerID], "signer %s surfaced twice", current.SignerID)
		seen[current.SignerID] = true
		_, err = f.signSvc.Sign(current.SignerID, env.ID, testutil.PNG(t), "", nil)
		require.NoError(t, err)
	}
	assert.Len(t, seen, 3)

	var got models.Envelope
	require.NoError(t, f.db.First(&got, "id = ?", env.ID).Error)
	assert.Equal(t, models.EnvelopeStatusCompleted, got.Status)
}
