package models

import "time"

// Setting is one key/value row of the settings table.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting keys.
const (
	SettingDefaultView = "default_view"
	SettingGroupOrder  = "group_order"
)

