// @title Papla Server API
// @version 1.0
// @description Web front-end for Papla text-to-speech with an audio sequencer.
// @host localhost:8080
// @BasePath /api
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"papla-server-go/internal/bootstrap"
)

func main() {
	fmt.Printf("[%s] [INFO] [BOOT] starting papla-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "papla-server failed: %v\n", err)
		os.Exit(1)
	}
}
