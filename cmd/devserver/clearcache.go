package main

import (
	"fmt"
	"path/filepath"

	"github.com/flatcar-linux/dev-util/impl/cache"
	"github.com/flatcar-linux/dev-util/impl/config"
	"github.com/flatcar-linux/dev-util/impl/globals"
)

// clearCache wipes every staged artifact under the cache dir. The cache
// root itself survives so a subsequent serve starts empty.
func clearCache() error {
	artifacts, err := cache.New(filepath.Join(config.GetStaticDir(), globals.CacheDir))
	if err != nil {
		return fmt.Errorf("error opening the artifact cache: %s", err)
	}
	if err := artifacts.ClearAll(); err != nil {
		return fmt.Errorf("error clearing the artifact cache: %s", err)
	}
	fmt.Println("cache cleared")
	return nil
}
