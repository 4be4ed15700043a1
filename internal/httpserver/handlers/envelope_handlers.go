package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"signflow/internal/audit"
	"signflow/internal/auth"
	"signflow/internal/models"
	"signflow/internal/services/envelope"
)

func CreateEnvelope(svc *envelope.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DocumentID   string              `json:"document_id"`
			SigningOrder models.SigningOrder `json:"signing_order"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.DocumentID == "" {
			http.Error(w, "document_id required", http.StatusBadRequest)
			return
		}
		uid := auth.Subject(r.Context())
		env, err := svc.Create(uid, req.DocumentID, req.SigningOrder, audit.MetaFromRequest(r))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondCreated(w, env)
	}
}

func SendEnvelope(svc *envelope.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		env, err := svc.Send(uid, chi.URLParam(r, "id"), audit.MetaFromRequest(r))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, env)
	}
}

func RejectEnvelope(svc *envelope.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		env, err := svc.Reject(uid, chi.URLParam(r, "id"), audit.MetaFromRequest(r))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, env)
	}
}

func ListEnvelopes(svc *envelope.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		envs, err := svc.ListFor(uid)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, envs)
	}
}

func GetEnvelope(svc *envelope.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := auth.Subject(r.Context())
		env, err := svc.GetFor(uid, chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, env)
	}
}
