package main

import (
	"os"

	"horse.fit/prompttranslate/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
