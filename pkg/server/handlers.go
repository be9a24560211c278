package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/storyweave/pkg/buildinfo"
	"github.com/matzehuels/storyweave/pkg/errors"
	"github.com/matzehuels/storyweave/pkg/export"
	"github.com/matzehuels/storyweave/pkg/pipeline"
	"github.com/matzehuels/storyweave/pkg/playback"
	"github.com/matzehuels/storyweave/pkg/render"
	"github.com/matzehuels/storyweave/pkg/story"
	"github.com/matzehuels/storyweave/pkg/validate"
)

// pipelineRequest is the body of the layout and diagram routes.
type pipelineRequest struct {
	Story   json.RawMessage  `json:"story"`
	Options pipeline.Options `json:"options"`
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.Wrap(errors.ErrCodeSizeLimitExceeded, err, "Request body is too large.")
		}
		return nil, errors.Wrap(errors.ErrCodeMalformedInput, err, "Could not read request body.")
	}
	return data, nil
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (story.Story, pipeline.Options, error) {
	data, err := s.readBody(w, r)
	if err != nil {
		return story.Story{}, pipeline.Options{}, err
	}
	var req pipelineRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return story.Story{}, pipeline.Options{}, errors.Wrap(errors.ErrCodeMalformedInput, err, "Request is not valid JSON.")
	}
	if len(req.Story) == 0 {
		return story.Story{}, pipeline.Options{}, errors.New(errors.ErrCodeInvalidInput, "Request has no story.")
	}
	opts := req.Options
	opts.Logger = s.logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return story.Story{}, pipeline.Options{}, errInvalid(err)
	}
	st, err := s.validator.Decode(req.Story, opts.ValidationMode())
	if err != nil {
		return story.Story{}, pipeline.Options{}, err
	}
	return st, opts, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	mode := validate.Loose
	if q := r.URL.Query().Get("mode"); q != "" {
		m, err := validate.ParseMode(q)
		if err != nil {
			writeError(w, errInvalid(err))
			return
		}
		mode = m
	}
	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.validator.ValidateJSON(data, mode))
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	st, opts, err := s.decodeRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, hit, err := s.runner.LayoutWithCacheInfo(r.Context(), st, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	setCacheHeader(w, hit)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, errInvalid(err))
		return
	}
	st, opts, err := s.decodeRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Formats = []string{string(format)}

	result, err := s.runner.ExecuteStory(r.Context(), st, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	setCacheHeader(w, result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(result.Artifacts[string(format)])
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(chi.URLParam(r, "format"))
	var encode func(story.Story) ([]byte, error)
	var contentType string
	switch format {
	case "json":
		encode, contentType = export.JSON, "application/json"
	case "html":
		encode, contentType = export.HTML, "text/html; charset=utf-8"
	default:
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "unknown export format %q (want json or html)", format))
		return
	}

	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := s.validator.Decode(data, validate.Import)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := encode(st)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(st.Title, format)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// playRequest starts a reading from Story or continues one from State.
type playRequest struct {
	Story  json.RawMessage `json:"story,omitempty"`
	State  json.RawMessage `json:"state,omitempty"`
	Action string          `json:"action,omitempty"`
	Option int             `json:"option,omitempty"`
}

type playResponse struct {
	State     playback.State `json:"state"`
	Node      story.Node     `json:"node"`
	Moved     bool           `json:"moved"`
	Ending    bool           `json:"ending"`
	CanGoBack bool           `json:"canGoBack"`
	Progress  *float64       `json:"progress,omitempty"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req playRequest
	if err := json.Unmarshal(data, &req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeMalformedInput, err, "Request is not valid JSON."))
		return
	}

	var p *playback.Player
	switch {
	case len(req.State) > 0:
		st, err := playback.DecodeState(req.State)
		if err != nil {
			writeError(w, err)
			return
		}
		p = playback.FromState(st)
	case len(req.Story) > 0:
		st, err := s.validator.Decode(req.Story, validate.Strict)
		if err != nil {
			writeError(w, err)
			return
		}
		p = playback.New(st)
	default:
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "Request needs a story or a state."))
		return
	}

	var moved bool
	switch req.Action {
	case "", "start":
	case "select":
		moved = p.SelectOption(req.Option)
	case "back":
		moved = p.GoBack()
	case "restart":
		p.Restart()
		moved = true
	default:
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "unknown action %q (want select, back or restart)", req.Action))
		return
	}

	node, _ := p.Current()
	resp := playResponse{
		State:     p.State(),
		Node:      node,
		Moved:     moved,
		Ending:    p.IsEnding(),
		CanGoBack: p.CanGoBack(),
	}
	if p.ShowProgress() {
		progress := p.Progress()
		resp.Progress = &progress
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		url = s.galleryURL
	}
	if url == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "no manifest URL configured"))
		return
	}
	entries, err := s.gallery.Fetch(r.Context(), url)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStateGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := errors.ValidateKey(key); err != nil {
		writeError(w, err)
		return
	}
	data, err := s.store.Load(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleStatePut(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := errors.ValidateKey(key); err != nil {
		writeError(w, err)
		return
	}
	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !json.Valid(data) {
		writeError(w, errors.New(errors.ErrCodeMalformedInput, "Snapshot is not valid JSON."))
		return
	}
	if err := s.store.Save(r.Context(), key, data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStateDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := errors.ValidateKey(key); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.Delete(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func setCacheHeader(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
}
