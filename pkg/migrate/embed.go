package migrate

import "embed"

// Migrations bundles the SQL files so binaries do not depend on the working directory.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// EmbeddedDir is the path of the bundled migrations inside Migrations.
const EmbeddedDir = "migrations"
