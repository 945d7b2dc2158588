// Package migrations embeds the SQL schema migrations so the migrate binary
// ships them inside the image instead of reading a source checkout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
