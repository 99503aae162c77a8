package model

type WhatsAppReminderRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
}

type ReminderResult struct {
	OK     bool   `json:"ok"`
	SID    string `json:"sid"`
	Mode   string `json:"mode"`
	SentTo string `json:"sentTo"`
}
