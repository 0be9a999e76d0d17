package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrEmptyDiscordToken error if config discord.token is empty.
	ErrEmptyDiscordToken = errors.New("toml config discord.token can not be empty")

	// ErrEmptyAccessDataDir error if config access.data_dir is empty.
	ErrEmptyAccessDataDir = errors.New("toml config access.data_dir can not be empty")

	// ErrPinnedAdminMissing error if a pinned command is configured without a pinned admin.
	ErrPinnedAdminMissing = errors.New("toml config access.pinned_command requires access.pinned_admin")

	// ErrUnknownGormEngine error if config db.gorm_engine is not one of sqlite, postgres, mysql.
	ErrUnknownGormEngine = errors.New("toml config db.gorm_engine must be sqlite, postgres or mysql")
)
