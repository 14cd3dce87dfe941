package main

import (
	"os"

	"github.com/lorekeeper/lorekeeper/syncservice"
)

func main() {
	if err := syncservice.Run(); err != nil {
		os.Exit(1)
	}
}
