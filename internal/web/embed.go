package web

import (
	"embed"
	"io/fs"

	"github.com/rs/zerolog/log"
)

var (
	//go:embed static/*
	embeddedStaticFiles embed.FS

	//go:embed templates/*
	embeddedTemplates embed.FS
)

// templatesFS returns the embedded template tree rooted below templates/,
// so template names stay free of the embed prefix.
func templatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		log.Fatal().Err(err).Msg("embedded templates missing")
	}

	return sub
}
