// Package levelconfig stores the runtime-editable leveling rules.
package levelconfig

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/db/controller/setting"
)

const (
	// SettingKeyLeveling is the key used to store leveling rules in the database.
	SettingKeyLeveling = "leveling"
)

type (
	// Settings represents the leveling progression rules.
	// Admins edit these at runtime; Defaults supplies the shipped values.
	Settings struct {
		Enabled         bool  `json:"enabled"`
		MinXPPerMessage int   `json:"minXpPerMessage" validate:"min=0"`
		MaxXPPerMessage int   `json:"maxXpPerMessage" validate:"min=0"`
		CooldownSeconds int   `json:"cooldownSeconds" validate:"min=0"`
		BaseXPRequired  int64 `json:"baseXpRequired"  validate:"min=1"`
		CoinsPerLevel   int64 `json:"coinsPerLevel"   validate:"min=0"`
	}
)

// Defaults returns the shipped leveling rules.
func Defaults() Settings {
	return Settings{
		Enabled:         true,
		MinXPPerMessage: 5,
		MaxXPPerMessage: 15,
		CooldownSeconds: 60,
		BaseXPRequired:  75,
		CoinsPerLevel:   35,
	}
}

// Load loads the leveling rules from the database, falling back to the
// shipped defaults when none were saved yet.
func (s *Settings) Load(db *gorm.DB) error {
	stored, err := setting.Get(db, SettingKeyLeveling)
	if errors.Is(err, setting.ErrSettingNotFound) {
		*s = Defaults()
		return nil
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(stored.Value, s)
}

// Save saves the leveling rules to the database.
func (s *Settings) Save(db *gorm.DB) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	_, err = setting.Set(db, SettingKeyLeveling, data)

	return err
}

// RequiredXP returns the XP needed to clear the given level.
func (s *Settings) RequiredXP(level int) int64 {
	if level < 1 {
		level = 1
	}

	return s.BaseXPRequired * int64(level)
}

// Advance applies earned XP to a level and in-level XP pair. It returns the
// new level, the XP left inside that level, and the coins awarded for any
// levels gained. Level-ups cascade when one message clears several levels.
func (s *Settings) Advance(level int, xp, earned int64) (newLevel int, newXP, coins int64) {
	if level < 1 {
		level = 1
	}

	newLevel = level
	newXP = xp + earned

	for newXP >= s.RequiredXP(newLevel) {
		newXP -= s.RequiredXP(newLevel)
		newLevel++
	}

	coins = s.CoinsPerLevel * int64(newLevel-level)

	return newLevel, newXP, coins
}
