// internal/app/system/csvutil/csvutil.go
package csvutil

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"
)

// ServeCSV writes header plus rows to w as a CSV download named
// <basename>-<date>.csv. The caller must not have written a status yet;
// a row error after the header flushes mid-stream and cannot be unwound,
// so it is only logged upstream.
func ServeCSV(w http.ResponseWriter, basename string, header []string, rows [][]string) error {
	filename := fmt.Sprintf("%s-%s.csv", basename, time.Now().UTC().Format("2006-01-02"))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
