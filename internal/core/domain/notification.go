package domain

// NotificationKind names the email templates the notifier can trigger.
type NotificationKind string

const (
	NotifyVerification    NotificationKind = "verification"
	NotifyPasswordReset   NotificationKind = "password_reset"
	NotifyPasswordChanged NotificationKind = "password_changed"
)

// Notification is a single outbound message handed to a transport.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	To        string           `json:"to"`
	FirstName string           `json:"first_name"`
	// Token carries the verification or reset token when the template needs one.
	Token string `json:"token,omitempty"`
}
