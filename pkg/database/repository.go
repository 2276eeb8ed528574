package database

import (
	"time"

	"gorm.io/gorm"
)

// EventRepository handles event database operations
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create adds a new event record
func (r *EventRepository) Create(ev *Event) error {
	return r.db.Create(ev).Error
}

// GetRecent retrieves the most recent N events
func (r *EventRepository) GetRecent(limit int) ([]Event, error) {
	var events []Event
	err := r.db.Order("time DESC, id DESC").Limit(limit).Find(&events).Error
	return events, err
}

// GetRecentPaginated retrieves events with pagination, optionally filtered by
// type. An empty eventType matches every event.
func (r *EventRepository) GetRecentPaginated(eventType string, page, perPage int) ([]Event, int64, error) {
	var events []Event
	var total int64

	if page < 1 {
		page = 1
	}

	query := r.db.Model(&Event{})
	if eventType != "" {
		query = query.Where("type = ?", eventType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	err := query.Order("time DESC, id DESC").
		Offset(offset).
		Limit(perPage).
		Find(&events).Error

	return events, total, err
}

// GetBySession retrieves the events of one session in arrival order
func (r *EventRepository) GetBySession(sessionID string, limit int) ([]Event, error) {
	var events []Event
	err := r.db.Where("session_id = ?", sessionID).
		Order("time ASC, id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// GetByPeerIP retrieves events sent from one address
func (r *EventRepository) GetByPeerIP(ip string, limit int) ([]Event, error) {
	var events []Event
	err := r.db.Where("peer_ip = ?", ip).
		Order("time DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// CountByType returns how many events of each type are stored
func (r *EventRepository) CountByType() ([]TypeCount, error) {
	var counts []TypeCount
	err := r.db.Model(&Event{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Order("type").
		Scan(&counts).Error
	return counts, err
}

// DeleteOlderThan deletes events older than the specified time
func (r *EventRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("time < ?", before).Delete(&Event{})
	return result.RowsAffected, result.Error
}
