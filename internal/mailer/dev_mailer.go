package mailer

import (
	"time"

	"github.com/eckinger/uchomp/pkg/logger"
)

// DevMailer prints mail to the logs instead of sending it.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendVerificationCode(email, code string) error {
	logger.Info("[DEV MAIL] verification code",
		"to", email,
		"code", code,
	)
	return nil
}

func (d *DevMailer) SendJoinNotification(email, restaurant string) error {
	logger.Info("[DEV MAIL] joined group",
		"to", email,
		"restaurant", restaurant,
	)
	return nil
}

func (d *DevMailer) SendLeaveNotification(email, restaurant string) error {
	logger.Info("[DEV MAIL] left group",
		"to", email,
		"restaurant", restaurant,
	)
	return nil
}

func (d *DevMailer) SendExpirationNotification(email, restaurant string, expiration time.Time) error {
	logger.Info("[DEV MAIL] group expiring soon",
		"to", email,
		"restaurant", restaurant,
		"expiration", expiration,
	)
	return nil
}
