package domain

const (
	MailTypeDeliveryConfirmation = "delivery_confirmation"
	MailTypeDeliveryStatusUpdate = "delivery_status_update"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type DeliveryConfirmationMailData struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
}

type DeliveryStatusMailData struct {
	Status   string `json:"status"`
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
}
