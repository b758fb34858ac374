package logbook

import "github.com/rpggio/teamwork/internal/query"

// Schema whitelists the logbook fields clients may filter, sort and select.
var Schema = query.Schema{
	Entity: "logbook",
	Fields: map[string]query.Type{
		"id":         query.String,
		"project_id": query.String,
		"author_id":  query.String,
		"date":       query.Time,
		"activity":   query.String,
		"time":       query.Int,
		"valid":      query.Bool,
		"created_at": query.Time,
		"updated_at": query.Time,
	},
	Selectable: []string{"attachments"},
	Ignore:     []string{"project"},
}
