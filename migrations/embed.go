// Package migrations embeds the WebGate SQL schema into the binary.
package migrations

import (
	"embed"

	"github.com/stagetwo/webgate/internal/infrastructure/database"
)

//go:embed *.sql
var schema embed.FS

func init() {
	database.RegisterSchema(schema, ".")
}
