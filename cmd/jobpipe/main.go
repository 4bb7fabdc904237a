package main

import (
	"os"

	"talentgrid.fit/jobpipe/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
