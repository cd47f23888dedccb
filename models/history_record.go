package models

import (
	"encoding/json"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HistoryAction is the kind of change a HistoryRecord captures
type HistoryAction string

const (
	HistoryActionCreate HistoryAction = "+"
	HistoryActionUpdate HistoryAction = "~"
	HistoryActionDelete HistoryAction = "-"
)

// Resource types tracked by the history store
const (
	HistoryResourceUser   = "User"
	HistoryResourcePerfil = "UsuarioPerfil"
	HistoryResourceCaso   = "Caso"
	HistoryResourceNino   = "Nino"
	HistoryResourceParte  = "Parte"
)

// HistoryRecord is an immutable snapshot of a tracked record after a change
type HistoryRecord struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_history_created_at" json:"created_at"`

	// Actor, denormalized so records survive user deletion
	UserID   *string `gorm:"type:uuid;index:idx_history_user" json:"user_id,omitempty"`
	UserName string  `json:"user_name"`

	ResourceType string        `gorm:"not null;index:idx_history_resource" json:"resource_type"`
	ResourceID   string        `gorm:"type:uuid;not null;index:idx_history_resource" json:"resource_id"`
	ResourceName string        `json:"resource_name,omitempty"`
	Action       HistoryAction `gorm:"not null;index" json:"action"`

	OldValues datatypes.JSON `json:"old_values,omitempty"`
	NewValues datatypes.JSON `json:"new_values,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
}

// HistoryChange is a single field difference between two snapshots
type HistoryChange struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
}

// Changes lists the fields that differ between OldValues and NewValues
func (h *HistoryRecord) Changes() []HistoryChange {
	oldMap := make(map[string]interface{})
	newMap := make(map[string]interface{})
	if len(h.OldValues) > 0 {
		_ = json.Unmarshal(h.OldValues, &oldMap)
	}
	if len(h.NewValues) > 0 {
		_ = json.Unmarshal(h.NewValues, &newMap)
	}

	keys := make(map[string]struct{})
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}

	var changes []HistoryChange
	for k := range keys {
		if !reflect.DeepEqual(oldMap[k], newMap[k]) {
			changes = append(changes, HistoryChange{Field: k, Old: oldMap[k], New: newMap[k]})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

func (h *HistoryRecord) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of history records
func (h *HistoryRecord) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// BeforeDelete prevents deletion of history records
func (h *HistoryRecord) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

func (HistoryRecord) TableName() string {
	return "history_records"
}
