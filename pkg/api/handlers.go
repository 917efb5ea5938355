package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/scalarfield/pkg/codec"
	"github.com/ssargent/scalarfield/pkg/exr"
	"github.com/ssargent/scalarfield/pkg/fieldio"
	"github.com/ssargent/scalarfield/pkg/fieldstore"
	"github.com/ssargent/scalarfield/pkg/logger"
)

// Server holds the API server state
type Server struct {
	store   FieldRepository
	config  ServerConfig
	metrics *Metrics
	log     logger.Logger
}

// NewServer creates a new API server
func NewServer(store FieldRepository, config ServerConfig, metrics *Metrics, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		store:   store,
		config:  config,
		metrics: metrics,
		log:     log,
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleCreateField godoc
//
//	@Summary		Store a field
//	@Description	Store an SF01 container or a single-channel OpenEXR image
//	@Tags			fields
//	@Accept			octet-stream,image/x-exr
//	@Produce		json
//	@Param			channel	query		string	false	"EXR channel to read (default Y)"
//	@Success		201		{object}	FieldResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		413		{object}	APIResponse
//	@Router			/fields [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCreateField(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	field, err := s.readField(w, r)
	if err != nil {
		s.metrics.RecordFieldOperation("create", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	id, err := s.store.Create(field)
	if err != nil {
		s.metrics.RecordFieldOperation("create", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	s.metrics.RecordFieldOperation("create", true, time.Since(start))
	s.log.Debug("field created", "id", id.String(), "height", field.Height, "width", field.Width)
	sendCreated(w, fieldResponse(id, field))
}

// handleListFields godoc
//
//	@Summary		List fields
//	@Tags			fields
//	@Produce		json
//	@Success		200	{array}		fieldstore.FieldInfo
//	@Router			/fields [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	infos, err := s.store.List()
	if err != nil {
		s.metrics.RecordFieldOperation("list", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	s.metrics.RecordFieldOperation("list", true, time.Since(start))
	sendSuccess(w, infos)
}

// handleGetField godoc
//
//	@Summary		Fetch a field
//	@Description	Returns the stored SF01 container. Use ?format=exr for OpenEXR or ?format=json for metadata and statistics.
//	@Tags			fields
//	@Produce		octet-stream,image/x-exr,json
//	@Param			id		path		string	true	"Field id"
//	@Param			format	query		string	false	"sf (default), exr or json"
//	@Param			channel	query		string	false	"EXR channel name for format=exr"
//	@Success		200		{object}	FieldDetailResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/fields/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetField(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := fieldID(r)
	if err != nil {
		s.metrics.RecordFieldOperation("get", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", string(fieldio.FormatSF):
		data, err := s.store.ReadRaw(id)
		if err != nil {
			s.metrics.RecordFieldOperation("get", false, time.Since(start))
			s.sendFieldError(w, err)
			return
		}
		s.metrics.RecordFieldOperation("get", true, time.Since(start))
		s.metrics.RecordBytes("out", len(data))
		sendBinary(w, fieldio.ContentTypeSF, data)

	case string(fieldio.FormatEXR):
		field, err := s.store.Read(id)
		if err == nil {
			var data []byte
			data, err = exr.Encode(field, exr.WithChannel(r.URL.Query().Get("channel")))
			if err == nil {
				s.metrics.RecordFieldOperation("get", true, time.Since(start))
				s.metrics.RecordBytes("out", len(data))
				sendBinary(w, fieldio.ContentTypeEXR, data)
				return
			}
		}
		s.metrics.RecordFieldOperation("get", false, time.Since(start))
		s.sendFieldError(w, err)

	case "json":
		field, err := s.store.Read(id)
		if err != nil {
			s.metrics.RecordFieldOperation("get", false, time.Since(start))
			s.sendFieldError(w, err)
			return
		}
		s.metrics.RecordFieldOperation("get", true, time.Since(start))
		sendSuccess(w, FieldDetailResponse{
			FieldResponse: fieldResponse(id, field),
			Stats:         field.Stats(),
		})

	default:
		s.metrics.RecordFieldOperation("get", false, time.Since(start))
		sendError(w, fmt.Sprintf("Unknown format %q", format), http.StatusBadRequest)
	}
}

// handleUpdateField godoc
//
//	@Summary		Replace a field
//	@Tags			fields
//	@Accept			octet-stream,image/x-exr
//	@Produce		json
//	@Param			id	path		string	true	"Field id"
//	@Success		200	{object}	FieldResponse
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/fields/{id} [put]
//	@Security		ApiKeyAuth
func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := fieldID(r)
	if err != nil {
		s.metrics.RecordFieldOperation("update", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	field, err := s.readField(w, r)
	if err != nil {
		s.metrics.RecordFieldOperation("update", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	if err := s.store.Update(id, field); err != nil {
		s.metrics.RecordFieldOperation("update", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	s.metrics.RecordFieldOperation("update", true, time.Since(start))
	sendSuccess(w, fieldResponse(id, field))
}

// handleDeleteField godoc
//
//	@Summary		Delete a field
//	@Tags			fields
//	@Produce		json
//	@Param			id	path		string	true	"Field id"
//	@Success		200	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/fields/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := fieldID(r)
	if err == nil {
		err = s.store.Delete(id)
	}
	if err != nil {
		s.metrics.RecordFieldOperation("delete", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	s.metrics.RecordFieldOperation("delete", true, time.Since(start))
	sendSuccess(w, map[string]string{"message": "Field deleted successfully"})
}

// handleConvert godoc
//
//	@Summary		Convert a field
//	@Description	Converts the request body between SF01 and OpenEXR without storing it
//	@Tags			fields
//	@Accept			octet-stream,image/x-exr
//	@Produce		octet-stream,image/x-exr
//	@Param			to		query	string	true	"Target format: sf or exr"
//	@Param			channel	query	string	false	"EXR channel name"
//	@Success		200
//	@Failure		400	{object}	APIResponse
//	@Router			/convert [post]
//	@Security		ApiKeyAuth
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	target, err := fieldio.ParseFormat(r.URL.Query().Get("to"))
	if err != nil {
		s.metrics.RecordFieldOperation("convert", false, time.Since(start))
		sendError(w, "Query parameter 'to' must be sf or exr", http.StatusBadRequest)
		return
	}

	field, err := s.readField(w, r)
	if err != nil {
		s.metrics.RecordFieldOperation("convert", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	data, err := fieldio.Marshal(field, target, exr.WithChannel(r.URL.Query().Get("channel")))
	if err != nil {
		s.metrics.RecordFieldOperation("convert", false, time.Since(start))
		s.sendFieldError(w, err)
		return
	}

	s.metrics.RecordFieldOperation("convert", true, time.Since(start))
	s.metrics.RecordBytes("out", len(data))
	sendBinary(w, target.ContentType(), data)
}

// handleStats godoc
//
//	@Summary		Repository statistics
//	@Tags			diagnostics
//	@Produce		json
//	@Success		200	{object}	fieldstore.Stats
//	@Router			/stats [get]
//	@Security		ApiKeyAuth
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		s.sendFieldError(w, err)
		return
	}
	s.metrics.UpdateFieldStats(stats.Fields, stats.TotalBytes)
	sendSuccess(w, stats)
}

// readField reads and decodes the request body, enforcing the size limit.
func (s *Server) readField(w http.ResponseWriter, r *http.Request) (*codec.ScalarField, error) {
	body := r.Body
	if s.config.MaxFieldBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxFieldBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordBytes("in", len(data))

	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == fieldio.ContentTypeEXR && !exr.IsEXR(data) {
		return nil, exr.ErrNotEXR
	}

	opts := []func(o *exr.Options){exr.WithChannel(r.URL.Query().Get("channel"))}
	if s.config.MaxFieldBytes > 0 {
		// a decoded field must still fit in an SF01 body of the same limit
		opts = append(opts, exr.WithMaxPixels((s.config.MaxFieldBytes-codec.HeaderSize)/4))
	}
	field, err := fieldio.Unmarshal(data, opts...)
	if err != nil {
		s.metrics.RecordCodecError(err)
		return nil, err
	}
	return field, nil
}

func (s *Server) sendFieldError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.log.Error("field operation failed", "error", err)
	}
	sendError(w, err.Error(), status)
}

// statusForError maps field, codec and storage errors to HTTP status codes
func statusForError(err error) int {
	var (
		codecErr *codec.CodecError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, fieldstore.ErrFieldNotFound):
		return http.StatusNotFound
	case errors.Is(err, fieldstore.ErrInvalidID),
		errors.As(err, &codecErr),
		errors.Is(err, exr.ErrNotEXR),
		errors.Is(err, exr.ErrUnsupported),
		errors.Is(err, exr.ErrMissingChannel),
		errors.Is(err, exr.ErrMalformedHeader):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fieldID(r *http.Request) (ksuid.KSUID, error) {
	return fieldstore.ParseID(chi.URLParam(r, "id"))
}

func fieldResponse(id ksuid.KSUID, field *codec.ScalarField) FieldResponse {
	return FieldResponse{
		ID:        id.String(),
		Height:    field.Height,
		Width:     field.Width,
		SizeBytes: field.EncodedSize(),
	}
}
