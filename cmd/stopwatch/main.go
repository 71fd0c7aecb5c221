package main

import (
	"log"

	"github.com/MrSnakeDoc/stopwatch/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ stopwatch failed: %v", err)
	}
}
