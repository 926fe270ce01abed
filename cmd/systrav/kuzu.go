//go:build cgo

package main

import (
	"github.com/dusk-indust/systrav/internal/store"
	"go.uber.org/zap"
)

func openKuzu(path string, logger *zap.Logger) (store.Store, error) {
	if path == "" {
		return store.NewKuzuStore(logger)
	}
	return store.NewKuzuFileStore(path, logger)
}
