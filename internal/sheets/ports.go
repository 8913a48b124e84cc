package sheets

import "context"

// TablePublisher replaces the contents of a named sheet with a table.
type TablePublisher interface {
	PublishTable(ctx context.Context, sheet string, header []string, rows [][]string) error
}
