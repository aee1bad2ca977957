package dto

type SendMessageRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,uuid4"`
	Content   string `json:"content" validate:"required,min=1,max=4000"`
	Image     string `json:"image" validate:"omitempty,max=2097152"`
	Mode      string `json:"mode" validate:"omitempty,oneof=tutor quiz"`
}

func (c SendMessageRequest) Validate() error {
	return GetValidator().Struct(c)
}

type SendMessageResponse struct {
	SessionID      string `json:"session_id"`
	Reply          string `json:"reply"`
	Remaining      int    `json:"remaining"`
	DailyRemaining *int   `json:"daily_remaining,omitempty"`
	StorageWarning string `json:"storage_warning,omitempty"`
}
