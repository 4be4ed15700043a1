// Package notify builds user-facing notification messages and records them
// asynchronously. The caller's transition commits regardless of what
// happens here.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signflow/internal/models"
	"signflow/internal/tasks"
)

// Enqueuer is the slice of the async executor the notifier needs.
type Enqueuer interface {
	Enqueue(name string, fn tasks.Func)
}

type Notifier struct {
	db   *gorm.DB
	lg   *zap.SugaredLogger
	exec Enqueuer
}

func New(db *gorm.DB, lg *zap.SugaredLogger, exec Enqueuer) *Notifier {
	return &Notifier{db: db, lg: lg, exec: exec}
}

// Send enqueues creation of a notification row for userID. Fire-and-forget:
// the executor retries storage failures, the caller never sees them.
func (n *Notifier) Send(userID, message string) {
	n.exec.Enqueue("create_notification", func(ctx context.Context) error {
		row := models.Notification{
			ID:      uuid.NewString(),
			UserID:  userID,
			Message: message,
		}
		return n.db.WithContext(ctx).Create(&row).Error
	})
}

// Message templates. Wording is part of the product surface; keep it stable.

func EnvelopeSentMessage(creatorName, fileName string) string {
	return fmt.Sprintf("%s has requested you to sign the document '%s'.", creatorName, fileName)
}

func SignerTurnMessage(fileName string) string {
	return fmt.Sprintf("It is now your turn to sign the document '%s'.", fileName)
}

func EnvelopeCompletedMessage(fileName string) string {
	return fmt.Sprintf("Your envelope for '%s' has been fully signed and completed.", fileName)
}

func SignerDeclinedMessage(signerName, fileName string) string {
	return fmt.Sprintf("Signer %s declined to sign the document '%s'. The envelope has been rejected.", signerName, fileName)
}

func EnvelopeRejectedMessage(creatorName, fileName string) string {
	return fmt.Sprintf("%s has cancelled the envelope for '%s'.", creatorName, fileName)
}
