package attendance

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/minuum/qr-prayer-check/core"
)

var csvHeader = []string{"id", "name", "phone", "checked_in_at", "source"}

// ExportCSV writes the logs matching filter, oldest first.
// The output starts with a UTF-8 BOM so spreadsheet apps detect the Hangul names.
func (svc *Service) ExportCSV(ctx context.Context, filter *QueryFilter, w io.Writer) error {
	filter, err := svc.resolveFilter(filter)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return errors.Wrap(err, "writing BOM")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}

	ordering := []core.DBOrdering{{Field: "created_at", Ascending: true}, {Field: "id", Ascending: true}}
	page := core.Page{Limit: core.MaxPageLimit}
	for {
		logs, total, err := svc.repo.QueryLogs(ctx, filter, ordering, page)
		if err != nil {
			return err
		}
		for _, l := range logs {
			rec := []string{
				strconv.FormatInt(l.ID, 10),
				l.Name,
				l.Phone,
				l.CreatedAt.In(svc.loc()).Format("2006-01-02 15:04:05"),
				l.Source,
			}
			if err := cw.Write(rec); err != nil {
				return errors.Wrap(err, "writing csv record")
			}
		}
		page.Offset += len(logs)
		if len(logs) == 0 || page.Offset >= total {
			break
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
