// Package site serves the static web client.
package site

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// Error constants
var (
	ErrNoWebDir = errors.New("web directory not found")
)

// Register mounts the web directory at / when it exists. Directory requests serve index.html.
func Register(_ context.Context, mux *http.ServeMux, dir string) error {
	if mux == nil {
		panic("mux is nil")
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoWebDir, dir)
	}
	mux.Handle("/", http.FileServer(http.Dir(dir)))
	return nil
}
