// Package db embeds the SQL migrations and development seed data.
package db

import "embed"

// Migrations holds the versioned schema files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Seed holds development fixtures under seed/.
//
//go:embed seed/*.sql
var Seed embed.FS
