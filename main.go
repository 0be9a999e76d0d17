package main

import (
	"os"

	"github.com/MyteScripts/gridbot/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
