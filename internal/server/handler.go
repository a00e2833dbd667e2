package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"atsengine/internal/common"
	appErrors "atsengine/internal/errors"
	"atsengine/internal/extraction"
	"atsengine/internal/observability"
	"atsengine/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "atsengine.api"

// analyzeHandler scores raw résumé text.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Engine.Observability.Tracer(tracerName).Start(r.Context(), "api.analyze")
	defer span.End()

	var req AnalyzeRequest
	if err := s.parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		s.writeAppError(w, r, err)
		return
	}

	industry := s.industry(req.Industry)
	span.SetAttributes(
		attribute.Int("request.text_length", len(req.Text)),
		attribute.String("industry", industry),
	)

	analysis, err := s.Engine.Analyzer.Analyze(ctx, req.Text, industry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.writeAppError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Int("response.score", analysis.Score.Total))
	writeJSON(w, http.StatusOK, analysis)
}

// uploadHandler extracts text from a multipart file upload and analyzes it.
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Engine.Observability.Tracer(tracerName).Start(r.Context(), "api.upload")
	defer span.End()

	doc, industry, err := s.readUpload(r)
	success := err == nil
	if err == nil {
		span.SetAttributes(
			attribute.String("upload.media_type", doc.MediaType),
			attribute.Int("upload.size", len(doc.Content)),
			attribute.String("industry", industry),
		)
	}
	s.Engine.Observability.RecordBusinessMetric(ctx, observability.MetricUpload, success,
		attribute.String("error_code", appErrors.CodeOf(err)))
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	analysis, err := s.Engine.Analyzer.Analyze(ctx, doc.Text, industry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Analysis: analysis,
		RecordID: analysis.ID,
		Filename: doc.Filename,
	})
}

func (s *Server) readUpload(r *http.Request) (types.RawDocument, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return types.RawDocument{}, "", appErrors.NewValidationError(appErrors.ErrCodeFileTooLarge,
				"upload exceeds the size limit", err)
		}
		return types.RawDocument{}, "", appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			"multipart field 'file' is required", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.Logger.Warn("Failed to close upload", "error", err)
		}
	}()

	if err := extraction.ValidateUpload(header.Filename, header.Size, s.AppConfig.App.MaxFileSize); err != nil {
		return types.RawDocument{}, "", err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return types.RawDocument{}, "", appErrors.NewIOError(appErrors.ErrCodeFileNotReadable, "failed to read upload", err)
	}

	doc, err := s.Engine.Extractor.Document(header.Filename, data)
	if err != nil {
		return types.RawDocument{}, "", err
	}
	return doc, s.industry(r.FormValue("industry")), nil
}

// improveHandler rewrites résumé text. Without a report the text is analyzed
// first so the strategy sees the full critique.
func (s *Server) improveHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Engine.Observability.Tracer(tracerName).Start(r.Context(), "api.improve")
	defer span.End()

	var req ImproveRequest
	if err := s.parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "validation"))
		s.writeAppError(w, r, err)
		return
	}
	if err := common.ValidateTemplateID(req.TemplateID); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	industry := s.industry(req.Industry)
	improveReq := types.ImprovementRequest{
		OriginalText: req.Text,
		Report:       req.Report,
		Industry:     industry,
		TemplateID:   req.TemplateID,
	}
	if req.OriginalScore != nil {
		improveReq.OriginalScore = *req.OriginalScore
	}

	if req.Report == nil || req.OriginalScore == nil {
		analysis, err := s.analyzeForImprovement(ctx, req, industry)
		if err != nil {
			span.RecordError(err)
			s.writeAppError(w, r, err)
			return
		}
		if improveReq.Report == nil {
			improveReq.Report = analysis.Report
			improveReq.IssueCount = len(analysis.Issues)
		}
		if req.OriginalScore == nil {
			improveReq.OriginalScore = analysis.Score.Total
		}
		improveReq.YearsExperience = analysis.Parsed.YearsExperience
	}

	span.SetAttributes(
		attribute.Int("request.text_length", len(req.Text)),
		attribute.Int("request.original_score", improveReq.OriginalScore),
		attribute.String("industry", industry),
	)

	result, err := s.Engine.Improver.Improve(ctx, improveReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.writeAppError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("response.strategy", result.Strategy.String()),
		attribute.Int("response.new_score", result.NewScore),
	)
	writeJSON(w, http.StatusOK, result)
}

// analyzeForImprovement runs the critiqued analysis when no report was
// supplied, and only the local scorer when the caller brought a report but
// no score. Neither is recorded.
func (s *Server) analyzeForImprovement(ctx context.Context, req ImproveRequest, industry string) (*types.Analysis, error) {
	if req.Report == nil {
		return s.Engine.Analyzer.AnalyzeTransient(ctx, req.Text, industry)
	}
	return s.Engine.Analyzer.AnalyzeLocal(ctx, req.Text, industry)
}

func (s *Server) industry(requested string) string {
	return common.NormalizeIndustry(strings.TrimSpace(requested), s.AppConfig.App.DefaultIndustry)
}
