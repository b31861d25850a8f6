// Package web holds the page of the port monitor. It shows queue levels,
// event counts per hook position and process resources, polling the
// monitor's /api routes.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"runtime"
	"strings"
)

// DevModeEnv names the environment variable that makes GetAssets read the
// page from the source tree, so that edits show without a rebuild.
const DevModeEnv = "TTCNPORT_MONITOR_DEV"

//go:embed dist/*
var staticAssets embed.FS

// GetAssets returns the monitor page and its script. They are embedded in
// the binary unless DevModeEnv is set.
func GetAssets() http.FileSystem {
	if DevMode() {
		_, assetPath, _, ok := runtime.Caller(0)
		if !ok {
			panic("error getting path")
		}

		assetPath = path.Join(path.Dir(assetPath), "/dist")

		fmt.Fprintf(os.Stderr, "Serving monitor page from %s\n", assetPath)

		return http.Dir(assetPath)
	}

	subFS, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(subFS)
}

// DevMode reports whether DevModeEnv is "true" or "1".
func DevMode() bool {
	v, found := os.LookupEnv(DevModeEnv)
	if !found {
		return false
	}

	return strings.EqualFold(v, "true") || v == "1"
}
