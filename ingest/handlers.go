package ingest

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/filters"
	"github.com/professorSergio12/Stock-Broker/utils"
	"github.com/sirupsen/logrus"
)

const (
	ooxmlMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// multipartHeadroom covers the multipart envelope around a file at the size cap.
	multipartHeadroom = 1 << 20

	msgWrongType    = "Only Excel workbooks (.xlsx, .xlsm) are allowed"
	msgLegacyFormat = "Legacy Excel formats (.xls, .xlsb) are not supported; save the file as .xlsx and upload again"
)

// ooxmlExtensions are the workbook formats the decoder can read.
var ooxmlExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

var legacyExtensions = map[string]bool{
	".xls":  true,
	".xlsb": true,
}

var legacyMimeTypes = map[string]bool{
	"application/vnd.ms-excel":                              true,
	"application/vnd.ms-excel.sheet.binary.macroEnabled.12": true,
}

// RegisterRoutes mounts the import endpoints on rg (normally /api).
func RegisterRoutes(rg *gin.RouterGroup, engine *Engine, maxUploadBytes int64) {
	upload := UploadHandler(engine, maxUploadBytes)
	rg.POST("/import", upload)
	rg.POST("/import/excel", upload)
	rg.GET("/import/progress/:id", ProgressHandler(engine.Tracker()))
}

// IsSpreadsheet reports an OOXML workbook by extension or, for names without
// a known extension, by MIME type.
func IsSpreadsheet(fileName, mimeType string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ooxmlExtensions[ext] {
		return true
	}
	if legacyExtensions[ext] {
		return false
	}
	return strings.ToLower(strings.TrimSpace(mimeType)) == ooxmlMimeType
}

// IsLegacyWorkbook reports a BIFF .xls or binary .xlsb upload.
func IsLegacyWorkbook(fileName, mimeType string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	if legacyExtensions[ext] {
		return true
	}
	if ooxmlExtensions[ext] {
		return false
	}
	return legacyMimeTypes[strings.ToLower(strings.TrimSpace(mimeType))]
}

// UploadHandler accepts a multipart "file" and starts an import. It answers as
// soon as the job is registered; clients poll the progress endpoint.
func UploadHandler(engine *Engine, maxUploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		if maxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+multipartHeadroom)
		}

		fh, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "File too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file uploaded"})
			return
		}
		if maxUploadBytes > 0 && fh.Size > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "File too large"})
			return
		}
		contentType := fh.Header.Get("Content-Type")
		if IsLegacyWorkbook(fh.Filename, contentType) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgLegacyFormat})
			return
		}
		if !IsSpreadsheet(fh.Filename, contentType) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msgWrongType})
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file uploaded"})
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			config.LogError(logger, "ingest", "UploadHandler", "read upload", fh.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": errorText("Failed to import Excel file", err)})
			return
		}

		task, err := engine.Submit(c.Request.Context(), Upload{
			FileName:    fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Data:        data,
			Table:       filters.SanitizeIdentifier(c.Query("table")),
		})
		if err != nil {
			if utils.IsValidationError(err) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
				return
			}
			config.LogError(logger, "ingest", "UploadHandler", "submit import", fh.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": errorText("Failed to import Excel file", err)})
			return
		}

		logger.WithFields(logrus.Fields{
			"module":   "ingest",
			"importId": task.ID,
			"file":     fh.Filename,
			"bytes":    fh.Size,
		}).Info("import accepted")
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"importId": task.ID,
			"message":  "Import started",
		})
	}
}

// ProgressHandler returns the tracked job. Responses are never cacheable so
// polling clients always see the latest state.
func ProgressHandler(tracker *Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")

		job, ok := tracker.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Import not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "progress": job})
	}
}

func errorText(msg string, err error) string {
	if config.IsProduction() || err == nil {
		return msg
	}
	return msg + ": " + err.Error()
}
