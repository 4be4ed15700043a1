package signing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signflow/internal/apperr"
	"signflow/internal/services/signing"
	"signflow/internal/testutil"
)

func TestResolverPrefersExplicitImage(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	f.giveDefaultSignature(t, a)
	inline := testutil.PNG(t)

	got, err := signing.ResolveSignatureImage(f.db, a.ID, inline, "")
	require.NoError(t, err)
	assert.Equal(t, inline, got)
}

func TestResolverRejectsAmbiguousSources(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	us, err := f.signSvc.CreateUserSignature(a.ID, testutil.PNG(t), false, nil)
	require.NoError(t, err)

	_, err = signing.ResolveSignatureImage(f.db, a.ID, testutil.PNG(t), us.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}

func TestResolverUsesExplicitID(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	image := testutil.PNG(t)
	us, err := f.signSvc.CreateUserSignature(a.ID, image, false, nil)
	require.NoError(t, err)

	got, err := signing.ResolveSignatureImage(f.db, a.ID, nil, us.ID)
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestResolverRejectsForeignOrMissingID(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	b := testutil.CreateUser(t, f.db, "b@example.com", "B")
	us, err := f.signSvc.CreateUserSignature(b.ID, testutil.PNG(t), false, nil)
	require.NoError(t, err)

	_, err = signing.ResolveSignatureImage(f.db, a.ID, nil, us.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrValidation))

	_, err = signing.ResolveSignatureImage(f.db, a.ID, nil, "0c9d8e7f-0000-4000-8000-00000000dead")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}

func TestResolverFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")
	f.giveDefaultSignature(t, a)

	got, err := signing.ResolveSignatureImage(f.db, a.ID, nil, "")
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestResolverErrorsWithoutAnySource(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")

	_, err := signing.ResolveSignatureImage(f.db, a.ID, nil, "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}

func TestResolverRejectsNonImageBytes(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateUser(t, f.db, "a@example.com", "A")

	_, err := signing.ResolveSignatureImage(f.db, a.ID, []byte("definitely not an image"), "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}
