package main

import (
	"github.com/galdor/go-service/pkg/service"
)

func main() {
	service.Run("livepoll", "a live classroom polling server", NewService())
}
