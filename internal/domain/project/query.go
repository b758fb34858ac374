package project

import "github.com/rpggio/teamwork/internal/query"

// Schema whitelists the project fields clients may filter, sort and select.
var Schema = query.Schema{
	Entity: "project",
	Fields: map[string]query.Type{
		"id":             query.String,
		"name":           query.String,
		"topic":          query.String,
		"description":    query.String,
		"chairman_id":    query.String,
		"teacher_id":     query.String,
		"active":         query.Bool,
		"finished":       query.Bool,
		"published":      query.Bool,
		"like_count":     query.Int,
		"bookmark_count": query.Int,
		"comment_count":  query.Int,
		"created_at":     query.Time,
		"updated_at":     query.Time,
	},
	Selectable: []string{"members", "results"},
	Ignore:     []string{"project", "user"},
}
