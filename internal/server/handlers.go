package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cast"
	"sigs.k8s.io/yaml"

	"github.com/koustreak/datforge/internal/config"
	"github.com/koustreak/datforge/internal/errs"
	"github.com/koustreak/datforge/internal/filestore"
	"github.com/koustreak/datforge/internal/params"
)

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

type relationSummary struct {
	Name        string           `json:"name"`
	Attributes  []attributeBrief `json:"attributes"`
	PrimaryKey  []string         `json:"primary_key"`
	ForeignKeys []foreignKeyRef  `json:"foreign_keys,omitempty"`
}

type attributeBrief struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Generator string `json:"generator"`
	Rank      int    `json:"rank"`
}

type foreignKeyRef struct {
	Attributes []string `json:"attributes"`
	References string   `json:"references"`
	Target     []string `json:"target_attributes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	schema, err := s.readSchema(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]relationSummary, 0, len(schema.Relations))
	for _, rel := range schema.Relations {
		sum := relationSummary{Name: rel.Name(), PrimaryKey: rel.PrimaryKey()}
		for _, a := range rel.Attributes() {
			sum.Attributes = append(sum.Attributes, attributeBrief{
				Name:      a.Name,
				Type:      string(a.Type),
				Generator: a.Generator.Kind().String(),
				Rank:      a.Rank,
			})
		}
		for _, fk := range rel.ForeignKeys() {
			sum.ForeignKeys = append(sum.ForeignKeys, foreignKeyRef{
				Attributes: fk.Attributes,
				References: fk.Target.Name(),
				Target:     fk.TargetAttributes(),
			})
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, map[string]any{"relations": out})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	format := filestore.FormatFacts
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := filestore.ParseFormat(q)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		format = f
	}

	opts := []params.ProcessOption{params.WithLogger(s.log)}
	if q := r.URL.Query().Get("seed"); q != "" {
		seed, err := cast.ToUint64E(q)
		if err != nil {
			s.writeError(w, r, errs.Wrap(errs.ErrKindInvalidInput, "seed must be an unsigned integer", err))
			return
		}
		opts = append(opts, params.WithSeed(seed))
	}

	schema, err := s.readSchema(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	proc, err := schema.Process(opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if n := proc.Rows(); n > s.cfg.MaxRows {
		s.writeError(w, r, errs.Newf(errs.ErrKindInvalidInput,
			"schema document asks for %d rows, the limit is %d", n, s.cfg.MaxRows))
		return
	}
	db, err := proc.Run(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	buf, err := filestore.Render(db, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Datforge-Rows", cast.ToString(db.Size()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// readSchema decodes the request body. JSON bodies are converted to YAML.
func (s *Server) readSchema(r *http.Request) (*config.Schema, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "schema document exceeds %d bytes", tooLarge.Limit)
		}
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "read request body", err)
	}

	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		body, err = yaml.JSONToYAML(body)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "decode json schema document", err)
		}
	}
	return config.ParseInline(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	kind := errs.KindOf(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]any{"path": r.URL.Path})
	} else {
		s.log.DebugWith("request rejected", map[string]any{"path": r.URL.Path, "error": err.Error()})
	}
	writeJSON(w, status, errorBody{
		Error:     err.Error(),
		Kind:      kind.String(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func statusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindSchema:
		return http.StatusUnprocessableEntity
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
