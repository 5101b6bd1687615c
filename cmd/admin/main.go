package main

import (
	"os"

	"github.com/nxtgenia/miniaturia/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
