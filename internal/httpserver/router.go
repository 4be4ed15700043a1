package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signflow/internal/audit"
	"signflow/internal/auth"
	"signflow/internal/httpserver/handlers"
	"signflow/internal/notify"
	"signflow/internal/services/envelope"
	"signflow/internal/services/signing"
)

func NewRouter(db *gorm.DB, lg *zap.SugaredLogger, exec notify.Enqueuer) http.Handler {
	notifier := notify.New(db, lg, exec)
	recorder := audit.NewRecorder(db, lg)
	envSvc := envelope.NewService(db, lg, notifier, recorder)
	signSvc := signing.NewService(db, lg, notifier, recorder)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/v1/auth/register", handlers.Register(db, lg))
	r.Post("/v1/auth/login", handlers.Login(db, lg))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(db))
		protected.Get("/v1/me", handlers.Me(db, lg))
		protected.Post("/v1/auth/logout", handlers.Logout(db))

		protected.Post("/v1/documents", handlers.CreateDocument(db, lg, recorder))
		protected.Get("/v1/documents", handlers.ListDocuments(db, lg))
		protected.Get("/v1/documents/{id}", handlers.GetDocument(db, lg))
		protected.Delete("/v1/documents/{id}", handlers.DeleteDocument(db, lg, recorder))

		protected.Post("/v1/envelopes", handlers.CreateEnvelope(envSvc, lg))
		protected.Get("/v1/envelopes", handlers.ListEnvelopes(envSvc, lg))
		protected.Get("/v1/envelopes/{id}", handlers.GetEnvelope(envSvc, lg))
		protected.Post("/v1/envelopes/{id}/send", handlers.SendEnvelope(envSvc, lg))
		protected.Post("/v1/envelopes/{id}/reject", handlers.RejectEnvelope(envSvc, lg))
		protected.Post("/v1/envelopes/{id}/sign", handlers.Sign(signSvc, lg))
		protected.Post("/v1/envelopes/{id}/decline", handlers.Decline(signSvc, lg))

		protected.Get("/v1/signatures/mine", handlers.ListUserSignatures(signSvc, lg))
		protected.Post("/v1/signatures/mine", handlers.CreateUserSignature(signSvc, lg))
		protected.Patch("/v1/signatures/mine/{id}", handlers.UpdateUserSignature(signSvc, lg))
		protected.Delete("/v1/signatures/mine/{id}", handlers.DeleteUserSignature(signSvc, lg))

		protected.Get("/v1/notifications", handlers.ListNotifications(db, lg))
		protected.Patch("/v1/notifications/{id}/read", handlers.MarkNotificationRead(db, lg))

		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireRole("Administrator"))
			admin.Get("/v1/audit", handlers.ListAuditLogs(db, lg))
			admin.Get("/v1/audit/{id}", handlers.GetAuditLog(db, lg))
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
