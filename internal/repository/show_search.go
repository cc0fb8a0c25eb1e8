package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/show-reservation/internal/model"
)

// escapeLike escapes LIKE wildcards so a keyword matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Search returns live shows whose name contains keyword, newest first. An
// empty keyword lists every live show.
func (r *ShowRepo) Search(ctx context.Context, keyword string) ([]model.Show, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return r.List(ctx, "")
	}
	var rows []showRow
	err := r.db(ctx).SelectContext(ctx, &rows,
		"SELECT "+showColumns+" FROM shows WHERE deleted_at IS NULL AND LOWER(name) LIKE ? ORDER BY id DESC",
		"%"+escapeLike(strings.ToLower(keyword))+"%")
	if err != nil {
		return nil, mapError(err)
	}
	return r.hydrate(ctx, rows)
}
