package audit_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signflow/internal/audit"
	"signflow/internal/models"
	"signflow/internal/testutil"
)

func TestRecordWritesEntry(t *testing.T) {
	db := testutil.NewDB(t)
	rec := audit.NewRecorder(db, testutil.Logger())
	actor := "7b5a3c1e-0000-4000-8000-000000000001"

	rec.Record(&actor, audit.ActionSendEnvelope,
		audit.Target{Kind: audit.KindEnvelope, ID: "9d2f4a6c-0000-4000-8000-000000000002"},
		"Envelope sent.", &audit.RequestMeta{IP: "10.0.0.9", UserAgent: "curl/8"})

	var rows []models.AuditLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, audit.ActionSendEnvelope, rows[0].Action)
	assert.Equal(t, audit.KindEnvelope, rows[0].TargetKind)
	assert.Equal(t, &actor, rows[0].ActorID)
	require.NotNil(t, rows[0].IPAddress)
	assert.Equal(t, "10.0.0.9", *rows[0].IPAddress)
	require.NotNil(t, rows[0].UserAgent)
	assert.Equal(t, "curl/8", *rows[0].UserAgent)
}

func TestRecordAllowsNilActorAndMeta(t *testing.T) {
	db := testutil.NewDB(t)
	rec := audit.NewRecorder(db, testutil.Logger())

	rec.Record(nil, audit.ActionRejectEnvelope,
		audit.Target{Kind: audit.KindEnvelope, ID: "9d2f4a6c-0000-4000-8000-000000000002"},
		"System rejection.", nil)

	var row models.AuditLog
	require.NoError(t, db.First(&row).Error)
	assert.Nil(t, row.ActorID)
	assert.Nil(t, row.IPAddress)
	assert.Nil(t, row.UserAgent)
}

func TestRecordNeverPanicsOnStorageFailure(t *testing.T) {
	db := testutil.NewDB(t)
	// Drop the table so the insert fails; Record must swallow it.
	require.NoError(t, db.Migrator().DropTable(&models.AuditLog{}))
	rec := audit.NewRecorder(db, testutil.Logger())

	assert.NotPanics(t, func() {
		rec.Record(nil, audit.ActionSignDoc,
			audit.Target{Kind: audit.KindSignature, ID: "9d2f4a6c-0000-4000-8000-000000000003"},
			"Signed.", nil)
	})
}

func TestMetaFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/envelopes/x/sign", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	r.Header.Set("User-Agent", "test-agent")
	meta := audit.MetaFromRequest(r)
	require.NotNil(t, meta)
	assert.Equal(t, "192.0.2.7", meta.IP)
	assert.Equal(t, "test-agent", meta.UserAgent)

	r.Header.Set("X-Forwarded-For", "203.0.113.4, 10.0.0.1")
	meta = audit.MetaFromRequest(r)
	assert.Equal(t, "203.0.113.4", meta.IP)
}
