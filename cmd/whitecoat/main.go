package main

import (
	"whitecoat/cmd/handlers"
	"whitecoat/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
