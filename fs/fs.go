// Package fs embeds the files shipped within the binaries.
package fs

import "embed"

// Migrations holds the goose SQL migrations under "migrations".
//
//go:embed migrations/*.sql
var Migrations embed.FS

// EmailTemplates holds the email templates under "templates/email".
//
//go:embed templates/email/*
var EmailTemplates embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
