// Command store runs an embedded PocketBase with the participant schema
// migrations registered. Use "go run ./scripts/store serve" for a local
// record store and "go run ./scripts/store migrate up" to apply the schema.
package main

import (
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"

	_ "attendance-scanner/migrations"
)

func main() {
	app := pocketbase.New()

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: false,
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
