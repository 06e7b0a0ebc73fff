package migrations

import (
	"github.com/pocketbase/pocketbase/core"
)

func init() {
	core.AppMigrations.Register(func(app core.App) error {
		collection := core.NewBaseCollection("participant")

		collection.Fields.Add(&core.TextField{
			Id:       "part_srn",
			Name:     "srn",
			Required: true,
			Max:      64,
		})

		// Each category flag is either "done" or empty
		for _, name := range []string{"entry", "dinner", "snacks", "breakfast"} {
			collection.Fields.Add(&core.SelectField{
				Id:        "part_" + name,
				Name:      name,
				Values:    []string{"done"},
				MaxSelect: 1,
			})
		}

		collection.AddIndex("idx_participant_srn", true, "srn", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("participant")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
