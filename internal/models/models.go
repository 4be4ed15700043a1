package models

import "time"

// Envelope and signature statuses. An envelope walks draft -> sent ->
// {completed, rejected}; completed and rejected are terminal.
const (
	EnvelopeStatusDraft     = "draft"
	EnvelopeStatusSent      = "sent"
	EnvelopeStatusCompleted = "completed"
	EnvelopeStatusRejected  = "rejected"

	SignatureStatusPending  = "pending"
	SignatureStatusSigned   = "signed"
	SignatureStatusDeclined = "declined"
)

type Role struct {
	ID   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"not null" json:"full_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	Roles        []Role    `gorm:"many2many:user_roles" json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName prefers the full name and falls back to the email.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

type Session struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Document is the metadata record for an uploaded file. The binary itself
// lives in external storage behind FileURL; only the status mirror is
// mutated once an envelope references the document.
type Document struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:uuid;index;not null" json:"owner_id"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	FileURL   string    `gorm:"size:500;not null" json:"file_url"`
	FileSize  int64     `gorm:"not null" json:"file_size"`
	Status    string    `gorm:"size:20;not null;default:draft;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Envelope struct {
	ID           string       `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID   string       `gorm:"type:uuid;index;not null" json:"document_id"`
	CreatorID    string       `gorm:"type:uuid;index;not null" json:"creator_id"`
	Status       string       `gorm:"size:20;not null;default:draft;index" json:"status"`
	SigningOrder SigningOrder `gorm:"type:jsonb" json:"signing_order"`
	Signatures   []Signature  `gorm:"foreignKey:EnvelopeID" json:"signatures,omitempty"`
	CreatedAt    time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Signature is one signer's slot in an envelope, materialized when the
// envelope is sent. SignerOrder copies the position from the envelope's
// signing order so the current signer is a single indexed query.
type Signature struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	EnvelopeID     string     `gorm:"type:uuid;index:idx_sig_envelope_status;not null" json:"envelope_id"`
	SignerID       string     `gorm:"type:uuid;index;not null" json:"signer_id"`
	SignerOrder    int        `gorm:"not null" json:"signer_order"`
	Status         string     `gorm:"size:20;not null;default:pending;index:idx_sig_envelope_status" json:"status"`
	SignatureImage []byte     `gorm:"type:bytea" json:"-"`
	SignedAt       *time.Time `json:"signed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserSignature is a reusable signature image owned by a user. At most one
// row per owner carries IsDefault; flipping a default clears the previous
// one in the same transaction.
type UserSignature struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Image     []byte    `gorm:"type:bytea;not null" json:"-"`
	IsDefault bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Notification struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Message   string    `gorm:"not null" json:"message"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// AuditLog rows are write-once. ActorID is nullable so entries outlive the
// deletion of the user who caused them.
type AuditLog struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID    *string   `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	Action     string    `gorm:"size:50;not null;index" json:"action"`
	TargetKind string    `gorm:"size:30;not null" json:"target_kind"`
	TargetID   string    `gorm:"type:uuid;not null" json:"target_id"`
	Message    string    `gorm:"not null" json:"message"`
	IPAddress  *string   `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent  *string   `json:"user_agent,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Role{}, &User{}, &Session{},
		&Document{}, &Envelope{}, &Signature{}, &UserSignature{},
		&Notification{}, &AuditLog{},
	}
}
