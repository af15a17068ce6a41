package mailer

import (
	"fmt"
	"time"
)

// Service is the notifier contract. All sends are best-effort; callers log
// failures and move on.
type Service interface {
	SendVerificationCode(email, code string) error
	SendJoinNotification(email, restaurant string) error
	SendLeaveNotification(email, restaurant string) error
	SendExpirationNotification(email, restaurant string, expiration time.Time) error
}

// Shared message bodies so every transport sends the same content.

func verificationMessage(code string) (subject, text, html string) {
	subject = "Your UChomp verification code"
	text = fmt.Sprintf("Your verification code is: %s\n\nThis code expires in 10 minutes.", code)
	html = fmt.Sprintf(`<h2>Your UChomp Verification Code</h2>
		<p>Your verification code is: <strong style="font-size: 24px;">%s</strong></p>
		<p>This code will expire in 10 minutes.</p>`, code)
	return subject, text, html
}

func joinMessage(restaurant string) (subject, text, html string) {
	subject = fmt.Sprintf("Welcome to the %s group on UChomp", restaurant)
	text = fmt.Sprintf("You have successfully joined the food order group for %s.", restaurant)
	html = fmt.Sprintf(`<h2>Successfully Joined Group</h2>
		<p>You have successfully joined the food order group for %s.</p>
		<p>You'll receive a heads-up shortly before the order expires.</p>`, restaurant)
	return subject, text, html
}

func leaveMessage(restaurant string) (subject, text, html string) {
	subject = fmt.Sprintf("Left the %s group on UChomp", restaurant)
	text = fmt.Sprintf("You have left the food order group for %s.", restaurant)
	html = fmt.Sprintf(`<h2>Group Left</h2>
		<p>You have left the food order group for %s.</p>
		<p>Feel free to join other groups or create your own!</p>`, restaurant)
	return subject, text, html
}

func expirationMessage(restaurant string, expiration time.Time) (subject, text, html string) {
	when := expiration.Local().Format("3:04 PM")
	subject = fmt.Sprintf("Your UChomp group for %s is expiring soon", restaurant)
	text = fmt.Sprintf("Your food order group for %s will expire at %s. Finalize your order before then.", restaurant, when)
	html = fmt.Sprintf(`<h2>Group Order Expiring Soon</h2>
		<p>Your food order group for %s will expire at %s.</p>
		<p>Please make sure to finalize your order before the expiration time.</p>`, restaurant, when)
	return subject, text, html
}
