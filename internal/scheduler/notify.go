package scheduler

import "github.com/gen2brain/beeep"

// Notifier shows a desktop notification.
type Notifier func(title, message string) error

func SendNotification(title, message string) error {
	return beeep.Notify(title, message, "")
}
