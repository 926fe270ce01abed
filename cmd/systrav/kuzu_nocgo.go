//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/systrav/internal/store"
	"go.uber.org/zap"
)

func openKuzu(string, *zap.Logger) (store.Store, error) {
	return nil, errors.New("the kuzu backend requires a cgo build")
}
