package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/google/uuid"
)

// Notice is the content delivered to a single user.
type Notice struct {
	EventID uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string
}

// Notifier delivers notices to users as in-app notifications.
type Notifier struct {
	repo Repository
}

func NewNotifier(repo Repository) (*Notifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &Notifier{repo: repo}, nil
}

// Send stores the notice for userID. A notice with the same event and type
// that was already delivered to the user is dropped.
func (n *Notifier) Send(ctx context.Context, userID uuid.UUID, notice Notice) error {
	if userID == uuid.Nil {
		return fmt.Errorf("recipient required")
	}
	if !notice.Type.IsValid() {
		return fmt.Errorf("invalid notification type %q", notice.Type)
	}
	row := &models.Notification{
		UserID:  userID,
		Type:    notice.Type,
		Title:   strings.TrimSpace(notice.Title),
		Message: strings.TrimSpace(notice.Message),
	}
	if notice.EventID != uuid.Nil {
		eventID := notice.EventID
		row.EventID = &eventID
	}
	if notice.Link != "" {
		link := notice.Link
		row.Link = &link
	}
	_, err := n.repo.Create(ctx, row)
	return err
}
