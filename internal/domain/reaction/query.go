package reaction

import "github.com/rpggio/teamwork/internal/query"

// Schema whitelists the reaction fields clients may filter, sort and select.
var Schema = query.Schema{
	Entity: "reaction",
	Fields: map[string]query.Type{
		"id":         query.String,
		"kind":       query.String,
		"project_id": query.String,
		"user_id":    query.String,
		"content":    query.String,
		"created_at": query.Time,
	},
}
