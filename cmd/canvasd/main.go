// Command canvasd runs the collaborative canvas session-history server.
package main

import (
	"log"

	"canvasd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
