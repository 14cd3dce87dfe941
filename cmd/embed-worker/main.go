package main

import (
	"os"

	"github.com/lorekeeper/lorekeeper/embedworker"
)

func main() {
	if err := embedworker.Run(); err != nil {
		os.Exit(1)
	}
}
