package models

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Load request lifecycle statuses. InTransit appears on the dashboard but is
// never set by any operation.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusInTransit = "in_transit"
)

// Call log statuses. The column is free text; these are the values the
// pipeline writes.
const (
	CallStatusSimulated  = "simulated"
	CallStatusInProgress = "in_progress"
	CallStatusProcessed  = "processed"
)

// LoadCodePrefix tags every load code with the operator's short name.
const LoadCodePrefix = "EXT"

// User represents a dashboard user
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"not null;uniqueIndex" json:"username"`
	Password string `gorm:"not null" json:"-"`
}

// LoadRequest is one shipment request extracted from a call or message
type LoadRequest struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	LoadID           string     `gorm:"column:load_id;not null;uniqueIndex" json:"loadId"`
	CustomerName     string     `gorm:"not null" json:"customerName"`
	CustomerPhone    string     `gorm:"not null" json:"customerPhone"`
	PickupLocation   string     `gorm:"not null" json:"pickupLocation"`
	PickupAddress    string     `gorm:"not null" json:"pickupAddress"`
	DeliveryLocation string     `gorm:"not null" json:"deliveryLocation"`
	DeliveryAddress  string     `gorm:"not null" json:"deliveryAddress"`
	CargoType        string     `gorm:"not null" json:"cargoType"`
	Weight           string     `gorm:"not null" json:"weight"`
	TruckType        string     `gorm:"not null" json:"truckType"`
	PickupTime       *string    `json:"pickupTime"`
	DeliveryTime     *string    `json:"deliveryTime"`
	Deadline         *string    `json:"deadline"`
	Status           string     `gorm:"not null;default:pending" json:"status"`
	Transcription    *string    `json:"transcription"`
	ExtractedData    *string    `json:"extractedData"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	ApprovedAt       *time.Time `json:"approvedAt"`
	NotificationSent bool       `gorm:"not null;default:false" json:"notificationSent"`
}

// Route renders the pickup/delivery pair the way notifications display it.
func (l *LoadRequest) Route() string {
	return fmt.Sprintf("%s -> %s", l.PickupLocation, l.DeliveryLocation)
}

// CallLog records one telephony or audio interaction, whether or not it
// produced a load request
type CallLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber   string    `gorm:"not null" json:"phoneNumber"`
	Duration      int       `json:"duration"`
	Status        string    `gorm:"not null" json:"status"`
	Transcription *string   `json:"transcription"`
	AudioFileURL  *string   `gorm:"column:audio_file_url" json:"audioFileUrl"`
	CallSID       *string   `gorm:"column:call_sid;index" json:"callSid"`
	LoadRequestID *uint     `json:"loadRequestId"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// ExtractedLoad is the fixed field set the extraction service returns for a
// transcript. Required fields are enforced at the adapter boundary; field
// content is opaque text.
type ExtractedLoad struct {
	CustomerName     string `json:"customerName"`
	CustomerPhone    string `json:"customerPhone,omitempty"`
	PickupLocation   string `json:"pickupLocation"`
	PickupAddress    string `json:"pickupAddress,omitempty"`
	DeliveryLocation string `json:"deliveryLocation"`
	DeliveryAddress  string `json:"deliveryAddress,omitempty"`
	CargoType        string `json:"cargoType"`
	Weight           string `json:"weight"`
	TruckType        string `json:"truckType"`
	PickupTime       string `json:"pickupTime,omitempty"`
	DeliveryTime     string `json:"deliveryTime,omitempty"`
	Deadline         string `json:"deadline,omitempty"`
}

// Route renders the extracted pickup/delivery pair for notifications.
func (e *ExtractedLoad) Route() string {
	return fmt.Sprintf("%s -> %s", e.PickupLocation, e.DeliveryLocation)
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&LoadRequest{},
		&CallLog{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
