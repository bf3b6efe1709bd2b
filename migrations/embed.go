// Package migrations embeds the SQL schema for each supported database driver.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
