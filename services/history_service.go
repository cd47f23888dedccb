package services

import (
	"encoding/json"
	"log"
	"time"

	"oficios_app_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecordHistory stores a snapshot of a tracked record. Failures are logged and
// never returned: the primary write has already been committed.
func RecordHistory(
	db *gorm.DB,
	actor Actor,
	action models.HistoryAction,
	resourceType string,
	resourceID string,
	resourceName string,
	oldValues interface{},
	newValues interface{},
) {
	record := models.HistoryRecord{
		UserID:       actor.userIDPtr(),
		UserName:     actor.UserName,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ResourceName: resourceName,
		Action:       action,
		OldValues:    toJSON(oldValues),
		NewValues:    toJSON(newValues),
		IPAddress:    actor.IPAddress,
	}

	if err := db.Create(&record).Error; err != nil {
		log.Printf("[AUDIT] Failed to record %s history for %s %s: %v", action, resourceType, resourceID, err)
	}
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("[AUDIT] Failed to encode history snapshot: %v", err)
		return nil
	}
	return datatypes.JSON(b)
}

// GetResourceHistory retrieves the history of a single record, newest first
func GetResourceHistory(db *gorm.DB, resourceType, resourceID string) ([]models.HistoryRecord, error) {
	var records []models.HistoryRecord
	err := db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// HistoryFilters contains filter options for history queries
type HistoryFilters struct {
	UserID       string
	ResourceType string
	Action       string
	DateFrom     time.Time
	DateTo       time.Time
	SearchQuery  string
}

// ListHistory retrieves paginated history records
func ListHistory(db *gorm.DB, filters HistoryFilters, page, pageSize int) ([]models.HistoryRecord, int64, error) {
	query := db.Model(&models.HistoryRecord{})

	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at < ?", filters.DateTo.Add(24*time.Hour))
	}
	if filters.SearchQuery != "" {
		p := likePattern(filters.SearchQuery)
		query = query.Where("resource_name LIKE ? OR user_name LIKE ?", p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.HistoryRecord
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}
