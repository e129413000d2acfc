package variant

import "time"

const EventVariantsRegenerated = "VariantsRegenerated"

// RegeneratedEvent is published after a structural edit replaced the option matrix.
type RegeneratedEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	ProductID   string    `json:"product_id"`
	MerchantID  string    `json:"merchant_id"`
	OptionCount int       `json:"option_count"`
	TotalStock  int       `json:"total_stock"`
	Timestamp   time.Time `json:"timestamp"`
}
