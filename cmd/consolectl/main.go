// Package main runs consolectl, the terminal client for the appointment
// administration API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	consolectl "github.com/smart-age-solutions/dashboard.book-an-appointment/internal/cmd/consolectl"
)

func main() {
	cfg, err := consolectl.ParseConfig()
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := consolectl.Execute(ctx, cfg, os.Args[1:])
	stop()
	os.Exit(code)
}
