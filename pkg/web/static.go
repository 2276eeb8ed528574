package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed dashboard/*
var dashboardFiles embed.FS

// embeddedStaticFS returns the built-in live event page
func embeddedStaticFS() (http.FileSystem, error) {
	sub, err := fs.Sub(dashboardFiles, "dashboard")
	if err != nil {
		return nil, err
	}
	return http.FS(sub), nil
}
