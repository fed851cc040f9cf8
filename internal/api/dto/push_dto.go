package dto

// RegisterPushTokenRequest payload.
type RegisterPushTokenRequest struct {
	FCMToken   string `json:"fcm_token"`
	Platform   string `json:"platform"`
	DeviceID   string `json:"device_id"`
	AppVersion string `json:"app_version"`
}
