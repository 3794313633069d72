package attendance

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cspresent/present/internal/common/httpclient"
)

// ExportFormat selects the export file type.
type ExportFormat string

const (
	FormatExcel ExportFormat = "excel"
	FormatCSV   ExportFormat = "csv"
)

// Extension returns the file extension of the format.
func (f ExportFormat) Extension() string {
	if f == FormatCSV {
		return "csv"
	}
	return "xlsx"
}

// ParseExportFormat accepts "excel", "xlsx" and "csv".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "excel", "xlsx":
		return FormatExcel, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", ErrInvalidInput.Msg("unsupported export format " + s)
}

// ExportOptions narrows an export. Empty fields are not sent.
type ExportOptions struct {
	Format    ExportFormat
	CourseID  string
	StudentID string
	StartDate string
	EndDate   string
	Status    string
}

func (o ExportOptions) query() map[string]string {
	q := map[string]string{"format": string(o.Format)}
	for k, v := range map[string]string{
		"course_id":  o.CourseID,
		"student_id": o.StudentID,
		"start_date": o.StartDate,
		"end_date":   o.EndDate,
		"status":     o.Status,
	} {
		if v != "" {
			q[k] = v
		}
	}
	return q
}

// DefaultExportName is the file name used when the server does not suggest one.
func DefaultExportName(format ExportFormat, now time.Time) string {
	return fmt.Sprintf("attendance_%s.%s", now.Format("2006-01-02"), format.Extension())
}

// Export streams an attendance export into w and returns the file name to
// save it under.
func (c *Client) Export(ctx context.Context, opts ExportOptions, now time.Time, w io.Writer) (string, error) {
	if opts.Format == "" {
		opts.Format = FormatExcel
	}
	rc, header, err := c.doer.StreamRequest(ctx, httpclient.RequestOptions{
		Method:      http.MethodGet,
		Path:        PathExport,
		QueryParams: opts.query(),
	})
	if err != nil {
		return "", ErrAttendance.MsgErr("Failed to export attendance", err)
	}
	defer rc.Close()

	// the server reports failures as a JSON envelope with status 200
	if mediaType, _, _ := mime.ParseMediaType(header.Get("Content-Type")); mediaType == "application/json" {
		body, err := io.ReadAll(rc)
		if err != nil {
			return "", ErrAttendance.MsgErr("Failed to export attendance", err)
		}
		result, err := parseResult(body)
		if err != nil {
			return "", err
		}
		return "", ErrRequestRejected.Msg(orDefault(result.Message, "Export failed"))
	}

	if _, err := io.Copy(w, rc); err != nil {
		return "", ErrAttendance.MsgErr("Failed to export attendance", err)
	}
	name := DefaultExportName(opts.Format, now)
	if _, params, err := mime.ParseMediaType(header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = filepath.Base(params["filename"])
	}
	return name, nil
}
