package user

import "github.com/rpggio/teamwork/internal/query"

// FullNameField is the virtual field searched by Search.
const FullNameField = "full_name"

// Schema whitelists the user fields clients may filter, sort and select.
var Schema = query.Schema{
	Entity: "user",
	Fields: map[string]query.Type{
		"id":         query.String,
		"first_name": query.String,
		"last_name":  query.String,
		"username":   query.String,
		"role":       query.String,
		"school_id":  query.String,
		"created_at": query.Time,
	},
	Selectable: []string{FullNameField},
	Ignore:     []string{"user", "project"},
}
