// Package audit appends immutable action records. Recording never fails
// the caller: storage errors are logged and swallowed so an audit outage
// cannot block or roll back a business transition.
package audit

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signflow/internal/models"
)

// Tracked actions.
const (
	ActionCreateEnvelope      = "CREATE_ENVELOPE"
	ActionSendEnvelope        = "SEND_ENVELOPE"
	ActionRejectEnvelope      = "REJECT_ENVELOPE"
	ActionSignDoc             = "SIGN_DOC"
	ActionDeclineSign         = "DECLINE_SIGN"
	ActionUploadDoc           = "UPLOAD_DOC"
	ActionDeleteDoc           = "DELETE_DOC"
	ActionCreateUserSignature = "CREATE_USER_SIGNATURE"
	ActionUpdateUserSignature = "UPDATE_USER_SIGNATURE"
	ActionDeleteUserSignature = "DELETE_USER_SIGNATURE"
)

// Target entity kinds.
const (
	KindDocument      = "document"
	KindEnvelope      = "envelope"
	KindSignature     = "signature"
	KindUserSignature = "user_signature"
)

// Target identifies the entity an action affected.
type Target struct {
	Kind string
	ID   string
}

// RequestMeta carries transport metadata worth keeping in the trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// MetaFromRequest extracts request metadata for the audit trail.
func MetaFromRequest(r *http.Request) *RequestMeta {
	if r == nil {
		return nil
	}
	ip := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else if host := ip; host != "" {
		if i := strings.LastIndex(host, ":"); i > 0 {
			ip = host[:i]
		}
	}
	return &RequestMeta{IP: ip, UserAgent: r.UserAgent()}
}

type Recorder struct {
	db *gorm.DB
	lg *zap.SugaredLogger
}

func NewRecorder(db *gorm.DB, lg *zap.SugaredLogger) *Recorder {
	return &Recorder{db: db, lg: lg}
}

// Record appends one entry. actorID may be nil for system actions. Any
// storage failure is logged, never returned.
func (rec *Recorder) Record(actorID *string, action string, target Target, message string, meta *RequestMeta) {
	row := models.AuditLog{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetKind: target.Kind,
		TargetID:   target.ID,
		Message:    message,
	}
	if meta != nil {
		if meta.IP != "" {
			ip := meta.IP
			row.IPAddress = &ip
		}
		if meta.UserAgent != "" {
			ua := meta.UserAgent
			row.UserAgent = &ua
		}
	}
	if err := rec.db.Create(&row).Error; err != nil {
		rec.lg.Errorw("audit record failed", "action", action, "target_kind", target.Kind, "target_id", target.ID, "error", err)
	}
}
