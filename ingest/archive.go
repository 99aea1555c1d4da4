package ingest

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/professorSergio12/Stock-Broker/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UploadFunc stores data under objectName and returns its URI.
type UploadFunc func(ctx context.Context, objectName, contentType string, data []byte, metadata map[string]string) (string, error)

// ArchiveObjectName is prefix/YYYY/MM/DD/<importId>_<file>.
func ArchiveObjectName(prefix, jobID, fileName string, now time.Time) string {
	return path.Join(prefix, now.UTC().Format("2006/01/02"), fmt.Sprintf("%s_%s", jobID, utils.SanitizeSegment(fileName)))
}

// GCSArchiver keeps a copy of every upload in GCS_BUCKET. A nil upload uses utils.UploadToGCS.
func GCSArchiver(prefix string, upload UploadFunc) Archiver {
	if upload == nil {
		upload = utils.UploadToGCS
	}
	return func(ctx context.Context, jobID string, up Upload) (string, error) {
		ct := up.ContentType
		if ct == "" || ct == "application/octet-stream" {
			ct = xlsxContentType
		}
		meta := map[string]string{"import_id": jobID, "file_name": up.FileName}
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
			meta["correlation_id"] = cid
		}
		if ip, ok := utils.GetClientIPFromContext(ctx); ok {
			meta["client_ip"] = ip
		}
		return upload(ctx, ArchiveObjectName(prefix, jobID, up.FileName, time.Now()), ct, up.Data, meta)
	}
}
