package config

// NotificationConfig defines configuration for the delivery webhook
type NotificationConfig struct {
	WebhookURL        string            `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" validate:"omitempty,url"`
	OwnerWebhooks     map[string]string `json:"owner_webhooks,omitempty" yaml:"owner_webhooks,omitempty" validate:"omitempty,dive,url"`
	MentionRoleIDs    []string          `json:"mention_role_ids,omitempty" yaml:"mention_role_ids,omitempty"`
	CaptionMaxLength  int               `json:"caption_max_length,omitempty" yaml:"caption_max_length,omitempty" validate:"min=16,max=1024"`
	RequestsPerSecond float64           `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty" validate:"gt=0"`
	TimeoutSecs       int               `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"min=1"`
	NotifyOnChange    bool              `json:"notify_on_change" yaml:"notify_on_change"`
	NotifyOnFailure   bool              `json:"notify_on_failure" yaml:"notify_on_failure"`
}

// NewDefaultNotificationConfig creates default notification configuration
func NewDefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		OwnerWebhooks:     map[string]string{},
		MentionRoleIDs:    []string{},
		CaptionMaxLength:  DefaultCaptionMaxLength,
		RequestsPerSecond: DefaultRequestsPerSecond,
		TimeoutSecs:       DefaultNotifierTimeoutSec,
		NotifyOnChange:    true,
		NotifyOnFailure:   true,
	}
}
