// Package appfs embeds the files the binaries ship with.
package appfs

import "embed"

//go:embed migrations templates/email/*
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
