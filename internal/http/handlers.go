package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"disputes/internal/core"
	"disputes/internal/export"
	"disputes/internal/log"
	"disputes/internal/presenter"
	"disputes/internal/services"
)

// datasetInfo describes the dataset a page was rendered from.
type datasetInfo struct {
	ID       string
	Source   string
	LoadedAt string
	Records  int
	Current  bool
}

type dimensionOption struct {
	Value    string
	Label    string
	Selected bool
}

type columnOption struct {
	Name     string
	Selected bool
}

// pageData feeds dashboard.html and the summary partial.
type pageData struct {
	Dataset     datasetInfo
	Retained    []string
	Options     core.FilterOptions
	Params      DashboardParams
	Dimensions  []dimensionOption
	Columns     []columnOption
	View        presenter.View
	Warning     string
	ExportQuery template.URL
	Filtered    int
}

// run parses the request and computes the dashboard outcome. On failure it
// writes the error response and returns false.
func (s *Server) run(w http.ResponseWriter, r *http.Request, asJSON bool) (DashboardParams, services.Outcome, bool) {
	params, err := ParseDashboardParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err, log.ErrorTypeValidation, asJSON)
		return params, services.Outcome{}, false
	}
	out, err := s.dashboard.Run(r.Context(), params.Query)
	if err != nil {
		status, msg, errType := classify(err)
		s.fail(w, r, status, msg, err, errType, asJSON)
		return params, services.Outcome{}, false
	}
	return params, out, true
}

func classify(err error) (status int, msg, errType string) {
	switch {
	case errors.Is(err, services.ErrDatasetNotFound):
		return http.StatusNotFound, "Dataset is no longer available, reload the page to use the current one", log.ErrorTypeNotFound
	case errors.Is(err, services.ErrNoDataset):
		return http.StatusServiceUnavailable, "No dataset loaded yet", log.ErrorTypeNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Request timed out", log.ErrorTypeTimeout
	case core.IsLoadError(err):
		return http.StatusBadGateway, err.Error(), log.ErrorTypeLoad
	}
	return http.StatusInternalServerError, "Internal error", log.ErrorTypeInternal
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error, errType string, asJSON bool) {
	logger := log.FromContext(r.Context())
	if status >= 500 {
		log.LogError(r.Context(), logger, "Dashboard request failed", err, log.OpSummarize, errType, nil)
	} else {
		logger.WarnContext(r.Context(), "Dashboard request rejected", log.FieldError, err.Error(), log.FieldErrorType, errType)
	}
	if asJSON {
		_ = writeJSON(w, status, errorBody{Error: msg})
		return
	}
	ErrorResponse(status, msg).Write(w)
}

func (s *Server) buildPage(params DashboardParams, out services.Outcome) pageData {
	ds := out.Dataset
	current := s.dashboard.Registry().Current()
	data := pageData{
		Dataset: datasetInfo{
			ID:       ds.ID.String(),
			Source:   ds.Source,
			LoadedAt: ds.LoadedAt.Format(time.RFC3339),
			Records:  ds.Len(),
			Current:  current != nil && current.ID == ds.ID,
		},
		Retained:    s.dashboard.Registry().Retained(),
		Options:     services.FilterOptions(ds.Records),
		Params:      params,
		View:        presenter.Build(out.Summary, out.Filtered, params.Dimension),
		ExportQuery: template.URL(params.Encode()),
		Filtered:    len(out.Filtered),
	}
	for _, d := range core.Dimensions {
		data.Dimensions = append(data.Dimensions, dimensionOption{
			Value:    string(d),
			Label:    d.Label(),
			Selected: d == params.Dimension,
		})
	}
	data.View.Detail = presenter.Detail(ds.Header, out.Filtered, params.Columns)
	shown := make(map[int]bool)
	for _, i := range presenter.DetailColumns(ds.Header, params.Columns) {
		shown[i] = true
	}
	for i, h := range ds.Header {
		data.Columns = append(data.Columns, columnOption{Name: h, Selected: shown[i]})
	}
	if out.FilterErr != nil {
		data.Warning = "Start date must not be after end date; no records match."
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.LogError(r.Context(), log.FromContext(r.Context()), "Template execution failed", err, log.OpRender, log.ErrorTypeInternal,
			log.NewFields().WithComponent(log.ComponentTemplate))
		InternalServerError("Error rendering page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	params, out, ok := s.run(w, r, false)
	if !ok {
		return
	}
	s.render(w, r, "dashboard.html", s.buildPage(params, out))
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	params, out, ok := s.run(w, r, false)
	if !ok {
		return
	}
	if isHTMX(r) {
		w.Header().Set("HX-Push-Url", "/?"+params.Encode())
	}
	s.render(w, r, "summary", s.buildPage(params, out))
}

type summaryResponse struct {
	DatasetID string             `json:"datasetId"`
	Source    string             `json:"source"`
	Records   int                `json:"records"`
	Filtered  int                `json:"filtered"`
	Warning   string             `json:"warning,omitempty"`
	Summary   core.SummaryResult `json:"summary"`
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	_, out, ok := s.run(w, r, true)
	if !ok {
		return
	}
	resp := summaryResponse{
		DatasetID: out.Dataset.ID.String(),
		Source:    out.Dataset.Source,
		Records:   out.Dataset.Len(),
		Filtered:  len(out.Filtered),
		Summary:   out.Summary,
	}
	if out.FilterErr != nil {
		resp.Warning = out.FilterErr.Error()
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPICharts(w http.ResponseWriter, r *http.Request) {
	params, out, ok := s.run(w, r, true)
	if !ok {
		return
	}
	_ = writeJSON(w, http.StatusOK, presenter.Charts(out.Summary, out.Filtered, params.Dimension))
}

func (s *Server) handleAPIOptions(w http.ResponseWriter, r *http.Request) {
	params, err := ParseDashboardParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error(), err, log.ErrorTypeValidation, true)
		return
	}
	opts, err := s.dashboard.Options(params.Query.DatasetID)
	if err != nil {
		status, msg, errType := classify(err)
		s.fail(w, r, status, msg, err, errType, true)
		return
	}
	_ = writeJSON(w, http.StatusOK, opts)
}

type datasetsResponse struct {
	Current  string   `json:"current"`
	Source   string   `json:"source"`
	Records  int      `json:"records"`
	LoadedAt string   `json:"loadedAt"`
	Retained []string `json:"retained"`
}

func (s *Server) handleAPIDatasets(w http.ResponseWriter, r *http.Request) {
	reg := s.dashboard.Registry()
	cur := reg.Current()
	if cur == nil {
		_ = writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "no dataset loaded"})
		return
	}
	retained := reg.Retained()
	if retained == nil {
		retained = []string{}
	}
	_ = writeJSON(w, http.StatusOK, datasetsResponse{
		Current:  cur.ID.String(),
		Source:   cur.Source,
		Records:  cur.Len(),
		LoadedAt: cur.LoadedAt.Format(time.RFC3339),
		Retained: retained,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.FormatCSV
	if strings.HasSuffix(r.URL.Path, ".xlsx") {
		format = export.FormatXLSX
	}
	_, out, ok := s.run(w, r, false)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, out.Dataset.Header, out.Filtered); err != nil {
		log.LogError(r.Context(), log.FromContext(r.Context()), "Export failed", err, log.OpExport, log.ErrorTypeInternal,
			log.NewFields().WithComponent(log.ComponentExport))
		InternalServerError("Export failed").Write(w)
		return
	}
	s.metrics.ObserveExport(format)

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(format, time.Now())))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Export served",
		log.FieldOperation, log.OpExport,
		log.FieldFormat, format,
		log.FieldDatasetID, out.Dataset.ID.String(),
		log.FieldFiltered, len(out.Filtered))
}

type reloadResponse struct {
	DatasetID string `json:"datasetId"`
	Previous  string `json:"previous,omitempty"`
	Source    string `json:"source"`
	Records   int    `json:"records"`
}

// handleReload loads the source into a new dataset. On failure the current
// dataset stays active and the error is reported to the caller.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	reg := s.dashboard.Registry()
	var previous string
	if cur := reg.Current(); cur != nil {
		previous = cur.ID.String()
	}

	ds, err := reg.Reload(r.Context())
	if err != nil {
		log.LogError(r.Context(), log.FromContext(r.Context()), "Reload failed", err, log.OpReload, log.ErrorTypeLoad, nil)
		msg := "Reload failed: " + err.Error()
		if isHTMX(r) {
			UnprocessableEntityError(msg).TriggerErrorNotification(msg).Write(w)
			return
		}
		_ = writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: msg})
		return
	}

	id := ds.ID.String()
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerDatasetReloaded(id, previous).
			TriggerSummaryRefresh().
			TriggerSuccessNotification(fmt.Sprintf("Loaded %d records from %s", ds.Len(), ds.Source)).
			BodyHTML(`<span class="dataset-id">` + id + `</span>`).
			Write(w)
		return
	}
	_ = writeJSON(w, http.StatusOK, reloadResponse{DatasetID: id, Previous: previous, Source: ds.Source, Records: ds.Len()})
}
