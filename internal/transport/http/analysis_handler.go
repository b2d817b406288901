package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "treatylens/internal/errors"
	"treatylens/internal/ingest"
	"treatylens/internal/services"
)

// AnalysisServiceInterface is the service contract the handler depends on.
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, req services.AnalysisRequest) (*services.AnalysisResponse, error)
}

// AnalysisHandler accepts submissions and returns full analysis payloads.
// Two request shapes are supported: multipart/form-data for direct uploads
// and JSON with base64-encoded file contents for system integrations.
type AnalysisHandler struct {
	service        AnalysisServiceInterface
	validate       *validator.Validate
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewAnalysisHandler(service AnalysisServiceInterface, maxUploadBytes int64, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:        service,
		validate:       validator.New(),
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "analysis")),
	}
}

func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Post("/", h.Analyze)
	return r
}

// Analyze handles POST /api/analysis.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		apierrors.WriteError(w, apierrors.InvalidRequestWithError(err))
		return
	}

	var req services.AnalysisRequest
	var apiErr *apierrors.APIError
	switch {
	case mediaType == "multipart/form-data":
		req, apiErr = h.parseMultipart(r)
	case mediaType == "application/json":
		req, apiErr = h.parseJSON(r)
	default:
		apiErr = apierrors.ErrValidation("Content-Type", "expected multipart/form-data or application/json")
	}
	if apiErr != nil {
		apierrors.WriteError(w, apiErr)
		return
	}

	// The schedule of values is the one non-negotiable input: without it
	// no burning cost exists, so the submission is rejected before any
	// extraction work starts.
	if len(req.ExposureFile.Data) == 0 {
		apierrors.WriteError(w, apierrors.ErrMissingExposure)
		return
	}

	resp, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "analysis failed",
			slog.String("insured", req.Insured),
			slog.String("error", err.Error()),
		)
		apierrors.WriteError(w, apierrors.ErrAnalysis(err))
		return
	}
	render.JSON(w, r, resp)
}

func (h *AnalysisHandler) parseMultipart(r *http.Request) (services.AnalysisRequest, *apierrors.APIError) {
	var req services.AnalysisRequest
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, apierrors.ErrPayloadTooLarge
		}
		return req, apierrors.InvalidRequestWithError(err)
	}

	req.Insured = strings.TrimSpace(r.FormValue("insured"))
	req.Currency = strings.ToUpper(strings.TrimSpace(r.FormValue("currency")))
	if raw := r.FormValue("reference_per_mille"); raw != "" {
		ref, err := strconv.ParseFloat(raw, 64)
		if err != nil || ref <= 0 {
			return req, apierrors.ErrValidation("reference_per_mille", "must be a positive number")
		}
		req.ReferencePerMille = ref
	}

	for _, header := range r.MultipartForm.File["claims"] {
		file, err := readUpload(header)
		if err != nil {
			return req, apierrors.InvalidRequestWithError(err)
		}
		req.ClaimFiles = append(req.ClaimFiles, file)
	}
	if headers := r.MultipartForm.File["exposure"]; len(headers) > 0 {
		file, err := readUpload(headers[0])
		if err != nil {
			return req, apierrors.InvalidRequestWithError(err)
		}
		req.ExposureFile = file
	}
	return req, nil
}

func readUpload(header *multipart.FileHeader) (ingest.File, error) {
	f, err := header.Open()
	if err != nil {
		return ingest.File{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return ingest.File{}, err
	}
	return ingest.File{Name: header.Filename, Data: data}, nil
}

type encodedFile struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required,base64"`
}

type analyzeJSONRequest struct {
	Insured           string        `json:"insured" validate:"required"`
	Currency          string        `json:"currency" validate:"omitempty,len=3,alpha"`
	ReferencePerMille float64       `json:"reference_per_mille" validate:"omitempty,gt=0"`
	ClaimFiles        []encodedFile `json:"claim_files" validate:"dive"`
	ExposureFile      *encodedFile  `json:"exposure_file" validate:"required"`
}

func (h *AnalysisHandler) parseJSON(r *http.Request) (services.AnalysisRequest, *apierrors.APIError) {
	var req services.AnalysisRequest
	var body analyzeJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, apierrors.ErrPayloadTooLarge
		}
		return req, apierrors.InvalidRequestWithError(err)
	}
	if err := h.validate.Struct(body); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return req, apierrors.ErrValidation(first.Field(), "failed "+first.Tag()+" validation")
		}
		return req, apierrors.InvalidRequestWithError(err)
	}

	req.Insured = strings.TrimSpace(body.Insured)
	req.Currency = strings.ToUpper(body.Currency)
	req.ReferencePerMille = body.ReferencePerMille

	for _, ef := range body.ClaimFiles {
		data, err := base64.StdEncoding.DecodeString(ef.Content)
		if err != nil {
			return req, apierrors.ErrValidation("claim_files", "content must be valid base64")
		}
		req.ClaimFiles = append(req.ClaimFiles, ingest.File{Name: ef.Name, Data: data})
	}
	data, err := base64.StdEncoding.DecodeString(body.ExposureFile.Content)
	if err != nil {
		return req, apierrors.ErrValidation("exposure_file", "content must be valid base64")
	}
	req.ExposureFile = ingest.File{Name: body.ExposureFile.Name, Data: data}
	return req, nil
}
