// Package web: статические страницы дашборда.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// Static отдаёт содержимое каталога static как корень.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
