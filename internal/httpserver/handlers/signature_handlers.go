package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"signflow/internal/audit"
	"signflow/internal/auth"
	"signflow/internal/services/signing"
)

// decodeImageField accepts raw base64 or a data URL and returns the image
// bytes. Empty input yields nil without error.
func decodeImageField(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

func Sign(svc *signing.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SignatureImage string `json:"signature_image,omitempty"`
			SignatureID    string `json:"signature_id,omitempty"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		image, err := decodeImageField(req.SignatureImage)
		if err != nil {
			http.Error(w, "signature_image must be base64 encoded", http.StatusBadRequest)
			return
		}
		uid := auth.Subject(r.Context())
		sig, err := svc.Sign(uid, chi.URLParam(r, "id"), image, req.SignatureID, audit.MetaFromRequest(r))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, sig)
	}
}

func Decline(svc *signing.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		sig, err := svc.Decline(uid, chi.URLParam(r, "id"), audit.MetaFromRequest(r))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, sig)
	}
}

func ListUserSignatures(svc *signing.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		sigs, err := svc.ListUserSignatures(uid)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, sigs)
	}
}

func CreateUserSignature(svc *signing.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Image     string `json:"image"`
			IsDefault bool   `json:"is_default"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		image, err := decodeImageField(req.Image)
		if err != nil {
			http.Error(w, "image must be base64 encoded", http.StatusBadRequest)
			return
		}
		uid := auth.Subject(r.Context())
		us, err := svc.CreateUserSignature(uid, image, req.IsDefault, audit.MetaFromRequest(r))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondCreated(w, us)
	}
}

func UpdateUserSignature(svc *signing.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Image     string `json:"image,omitempty"`
			IsDefault *bool  `json:"is_default,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		image, err := decodeImageField(req.Image)
		if err != nil {
			http.Error(w, "image must be base64 encoded", http.StatusBadRequest)
			return
		}
		uid := auth.Subject(r.Context())
		us, err := svc.UpdateUserSignature(uid, chi.URLParam(r, "id"), image, req.IsDefault, audit.MetaFromRequest(r))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, us)
	}
}

func DeleteUserSignature(svc *signing.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		if err := svc.DeleteUserSignature(uid, chi.URLParam(r, "id"), audit.MetaFromRequest(r)); err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}
