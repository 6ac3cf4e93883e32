package issue

import "time"

// Status tracks the lifecycle of a reported issue. Transitions past OPEN are
// owned by the downstream fulfilment workflow.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// DeviceDetails describes the device the user reported a problem with.
type DeviceDetails struct {
	Brand      string `bson:"brand,omitempty" json:"brand,omitempty"`
	Model      string `bson:"model,omitempty" json:"model,omitempty"`
	DeviceType string `bson:"device_type,omitempty" json:"device_type,omitempty"`
	OSVersion  string `bson:"os_version,omitempty" json:"os_version,omitempty"`
}

// PurchaseInfo captures purchase and warranty context.
type PurchaseInfo struct {
	PurchaseDate     string `bson:"purchase_date,omitempty" json:"purchase_date,omitempty"`
	WarrantyStatus   string `bson:"warranty_status,omitempty" json:"warranty_status,omitempty"`
	PurchaseLocation string `bson:"purchase_location,omitempty" json:"purchase_location,omitempty"`
}

// ProblemDescription captures the symptoms gathered during the conversation.
type ProblemDescription struct {
	Symptoms                string `bson:"symptoms,omitempty" json:"symptoms,omitempty"`
	ErrorMessages           string `bson:"error_messages,omitempty" json:"error_messages,omitempty"`
	Frequency               string `bson:"frequency,omitempty" json:"frequency,omitempty"`
	Trigger                 string `bson:"trigger,omitempty" json:"trigger,omitempty"`
	TroubleshootingAttempts string `bson:"troubleshooting_attempts,omitempty" json:"troubleshooting_attempts,omitempty"`
}

// CategoryDetails names the service category the issue falls under, used to
// resolve skill identifiers during matching. Both fields are free text coming
// out of extraction; unresolvable names are dropped silently by the matcher.
type CategoryDetails struct {
	Category    string `bson:"category,omitempty" json:"category,omitempty"`
	SubCategory string `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
}

// StructuredIssue is the normalized record extracted from a completed
// conversation. Created once per conversation; immutable afterwards except
// for status transitions.
type StructuredIssue struct {
	ID                 string              `bson:"_id,omitempty" json:"id,omitempty"`
	UserID             string              `bson:"user_id" json:"user_id"`
	ConversationID     string              `bson:"conversation_id" json:"conversation_id"`
	Status             Status              `bson:"status" json:"status"`
	DeviceDetails      *DeviceDetails      `bson:"device_details,omitempty" json:"device_details,omitempty"`
	PurchaseInfo       *PurchaseInfo       `bson:"purchase_info,omitempty" json:"purchase_info,omitempty"`
	ProblemDescription *ProblemDescription `bson:"problem_description,omitempty" json:"problem_description,omitempty"`
	CategoryDetails    *CategoryDetails    `bson:"category_details,omitempty" json:"category_details,omitempty"`
	Summary            string              `bson:"summary" json:"summary"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}
