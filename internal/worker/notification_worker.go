package worker

import (
	"github.com/freshmanacadamy/Ver/internal/service"
)

// StartNotificationWorker subscribes admin notifications to workflow events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
