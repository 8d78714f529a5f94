package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/phoenix/internal/activity"
	"github.com/efebarandurmaz/phoenix/internal/language"
	"github.com/efebarandurmaz/phoenix/internal/observability"
	"github.com/efebarandurmaz/phoenix/internal/session"
)

const (
	maxMultipartMemory = 32 << 20
	indexTimeout       = time.Minute
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, msgUploadTooLarge, err)
			return
		}
		s.writeError(w, r, http.StatusBadRequest, msgNoFiles, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeError(w, r, http.StatusBadRequest, msgNoFiles, nil)
		return
	}

	ctx, span := observability.StartUploadSpan(r.Context(), len(headers))
	defer span.End()

	files := make([]session.File, 0, len(headers))
	contents := make(map[string]string, len(headers))
	var total int64
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			observability.RecordError(span, err)
			s.writeError(w, r, http.StatusInternalServerError, msgUploadFailed, err)
			return
		}
		files = append(files, session.File{
			Name:     fh.Filename,
			Size:     fh.Size,
			Type:     fh.Header.Get("Content-Type"),
			Language: language.Classify(fh.Filename),
			Detected: language.DetectContent(fh.Filename, content),
			Content:  string(content),
		})
		contents[fh.Filename] = string(content)
		total += fh.Size
	}

	id := session.NewID()
	if err := s.deps.Sessions.Put(ctx, id, files); err != nil {
		observability.RecordError(span, err)
		s.writeError(w, r, http.StatusInternalServerError, msgUploadFailed, err)
		return
	}
	observability.Metrics().RecordUpload(total)
	observability.Audit().LogUpload(id, len(files), total)
	s.log.WithFields(logrus.Fields{"session_id": id, "files": len(files), "bytes": total}).Info("upload stored")
	s.publish(activity.Event{Kind: activity.KindUpload, SessionID: id, Value: len(files)})

	if s.deps.Index.Enabled() {
		go s.indexUpload(context.WithoutCancel(ctx), id, files)
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:      true,
		SessionID:    id,
		Files:        files,
		FileContents: contents,
		Message:      fmt.Sprintf("%d file(s) uploaded successfully", len(files)),
	})
}

func (s *Server) indexUpload(ctx context.Context, id string, files []session.File) {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()
	if err := s.deps.Index.IndexFiles(ctx, id, files); err != nil {
		s.log.WithField("session_id", id).WithError(err).Warn("similarity indexing failed")
	}
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}
	return b, nil
}
