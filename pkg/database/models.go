package database

import (
	"time"

	"gorm.io/gorm"
)

// Event is one recorded protocol event (connection, heartbeat, command,
// request or unknown message) harvested from an external controller.
type Event struct {
	ID          uint                   `gorm:"primarykey" json:"id"`
	Time        time.Time              `gorm:"index;not null" json:"time"`
	Type        string                 `gorm:"index;size:16;not null" json:"type"`
	Mode        string                 `gorm:"size:8" json:"mode"`
	SessionID   string                 `gorm:"index;size:36" json:"session_id"`
	PeerIP      string                 `gorm:"index;size:45" json:"peer_ip"`
	PeerPort    int                    `json:"peer_port"`
	MessageID   uint32                 `gorm:"index" json:"message_id"`
	MessageName string                 `gorm:"size:64" json:"message_name,omitempty"`
	Group       string                 `gorm:"column:msg_group;size:32" json:"group,omitempty"`
	CommandID   uint16                 `json:"command_id,omitempty"`
	Command     string                 `gorm:"size:64" json:"command,omitempty"`
	Params      map[string]interface{} `gorm:"serializer:json;type:text" json:"params,omitempty"`
	PayloadLen  int                    `json:"payload_len"`
	CreatedAt   time.Time              `json:"created_at"`
}

// TableName specifies the table name for Event
func (Event) TableName() string {
	return "events"
}

// BeforeCreate hook to ensure Time and CreatedAt are set
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.Time.IsZero() {
		e.Time = now
	}
	return nil
}

// TypeCount is the number of stored events of one type
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}
