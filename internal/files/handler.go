package files

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gcsfiles/service/internal/adapter"
	"github.com/gcsfiles/service/internal/logging"
	"github.com/gcsfiles/service/internal/response"
	"github.com/gcsfiles/service/internal/storage"
)

// Handler holds HTTP handlers for file endpoints.
type Handler struct {
	svc      *Service
	maxBytes int64
}

// NewHandler creates a new files Handler. Request bodies larger than
// maxBytes are rejected.
func NewHandler(svc *Service, maxBytes int64) *Handler {
	return &Handler{svc: svc, maxBytes: maxBytes}
}

// Routes mounts the public routes on r and the write routes behind auth.
func (h *Handler) Routes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/exists", h.Exists)
	r.Get("/{id}", h.Get)
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/", h.Upload)
		r.Delete("/{id}", h.Delete)
	})
}

type existsData struct {
	Exists bool                 `json:"exists"`
	Object *storage.ObjectAttrs `json:"object,omitempty"`
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Stores the multipart "file" field in the bucket under a generated name and records it.
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	response.Envelope{data=File}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/files [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(w, "file too large")
			return
		}
		response.BadRequest(w, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	mimetype := header.Header.Get("Content-Type")
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	f, err := h.svc.Upload(r.Context(), UploadInput{
		Body:         file,
		OriginalName: header.Filename,
		Mimetype:     mimetype,
		Size:         header.Size,
	})
	if err != nil {
		h.writeError(w, "upload failed", err)
		return
	}

	response.Created(w, f)
}

// Get godoc
//
//	@Summary		Get a file
//	@Description	Returns the stored record and public URL of a file.
//	@Tags			files
//	@Produce		json
//	@Param			id	path		string	true	"File ID"
//	@Success		200	{object}	response.Envelope{data=File}
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/files/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(w, r)
	if !ok {
		return
	}

	f, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "get failed", err)
		return
	}
	response.OK(w, f)
}

// Delete godoc
//
//	@Summary		Delete a file
//	@Description	Removes the object from the bucket, then its record.
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"File ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		502	{object}	response.Envelope
//	@Router			/files/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, "delete failed", err)
		return
	}
	response.OK(w, map[string]bool{"deleted": true})
}

// Exists godoc
//
//	@Summary		Check object existence
//	@Description	Looks a literal object name up in the default bucket.
//	@Tags			files
//	@Produce		json
//	@Param			filename	query		string	true	"Object name"
//	@Success		200			{object}	response.Envelope{data=existsData}
//	@Failure		400			{object}	response.Envelope
//	@Failure		502			{object}	response.Envelope
//	@Router			/files/exists [get]
func (h *Handler) Exists(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		response.BadRequest(w, "filename query parameter is required")
		return
	}

	attrs, err := h.svc.Exists(r.Context(), filename)
	if err != nil {
		h.writeError(w, "exists check failed", err)
		return
	}
	response.OK(w, existsData{Exists: attrs != nil, Object: attrs})
}

func fileID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(w, "file not found")
		return "", false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	var (
		nameErr     *adapter.NameGenerationError
		providerErr *adapter.ProviderError
	)
	switch {
	case h.svc.IsNotFound(err):
		response.NotFound(w, "file not found")
	case h.svc.IsCollision(err):
		response.Conflict(w, "could not find a free filename")
	case errors.As(err, &nameErr):
		response.BadRequest(w, nameErr.Error())
	case errors.As(err, &providerErr):
		logging.Error(msg, zap.Error(err))
		response.BadGateway(w, "object storage unavailable")
	default:
		logging.Error(msg, zap.Error(err))
		response.InternalError(w)
	}
}
