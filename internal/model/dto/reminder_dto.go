package dto

import "time"

// ========== Reminder 相关 DTO ==========

type ReminderData struct {
	CommunityID    string     `json:"community_id"`
	CommunityName  string     `json:"community_name"`
	CertDays       []string   `json:"cert_days"`
	CertTime       string     `json:"cert_time"`
	LeadMinutes    int        `json:"lead_minutes"`
	LastRemindedAt *time.Time `json:"last_reminded_at,omitempty"`
}
