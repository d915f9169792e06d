package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lessonforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const (
	payloadNamespaceKey = "_lf_namespace"
	payloadPointIDKey   = "_lf_point_id"
	maxErrorBodyBytes   = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("6d1c4f0e-8a3b-4c55-9d2e-3f7a1b9e0c42")

// Point is a vector with its payload. ID is caller-chosen and namespaced on write.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Match is a search hit. Score is higher-is-better regardless of distance metric.
type Match struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// VectorStore is the subset of the store that retrieval code depends on.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, points []Point) error
	Search(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]any) ([]Match, error)
	Delete(ctx context.Context, namespace string, ids []string) error
}

// Store talks to the qdrant REST API over plain HTTP.
type Store struct {
	log      *logger.Logger
	cfg      Config
	baseURL  string
	nsPrefix string
	distance string
	http     *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type searchHit struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewStore verifies qdrant is reachable and creates the collection when it is missing.
func NewStore(ctx context.Context, log *logger.Logger, cfg Config) (*Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	s := &Store{
		log:      log.With("service", "QdrantStore"),
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		nsPrefix: strings.TrimSpace(cfg.NamespacePrefix),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	s.log.Info("qdrant store ready",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"namespace_prefix", s.nsPrefix,
		"vector_dim", cfg.VectorDim,
		"distance", s.distance,
	)
	return s, nil
}

func (s *Store) Upsert(ctx context.Context, namespace string, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	ns := s.qualifyNamespace(namespace)
	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q has empty vector", id), nil)
		}
		if len(p.Vector) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("point %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(p.Vector)), nil)
		}
		payload := make(map[string]any, len(p.Payload)+2)
		for k, v := range p.Payload {
			payload[k] = v
		}
		payload[payloadNamespaceKey] = ns
		payload[payloadPointIDKey] = id
		body = append(body, map[string]any{
			"id":      s.pointID(ns, id),
			"vector":  p.Vector,
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": body}, nil)
}

// Search returns hits sorted by descending score. Internal bookkeeping keys are stripped from payloads.
func (s *Store) Search(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if len(vector) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(vector)), nil)
	}
	if topK <= 0 {
		topK = 10
	}

	ns := s.qualifyNamespace(namespace)
	base := clauses{Must: []any{matchValue(payloadNamespaceKey, ns)}}
	if len(filter) > 0 {
		extra, err := translateFilter(filter)
		if err != nil {
			var oe *OperationError
			if errors.As(err, &oe) && oe.Code == OperationErrorUnsupportedFilter {
				s.log.Warn("qdrant filter unsupported", "namespace", ns, "error", err)
			}
			return nil, err
		}
		base.merge(extra)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
		"filter":       base.asMap(),
	}
	var hits []searchHit
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &hits); err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		id, _ := h.Payload[payloadPointIDKey].(string)
		if strings.TrimSpace(id) == "" {
			id = decodePointID(h.ID)
		}
		if id == "" {
			continue
		}
		payload := make(map[string]any, len(h.Payload))
		for k, v := range h.Payload {
			if k == payloadNamespaceKey || k == payloadPointIDKey {
				continue
			}
			payload[k] = v
		}
		out = append(out, Match{ID: id, Score: s.normalizeScore(h.Score), Payload: payload})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func (s *Store) Delete(ctx context.Context, namespace string, ids []string) error {
	const op = "delete"
	ns := s.qualifyNamespace(namespace)
	seen := make(map[string]bool, len(ids))
	pointIDs := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		pid := s.pointID(ns, id)
		if seen[pid] {
			continue
		}
		seen[pid] = true
		pointIDs = append(pointIDs, pid)
	}
	if len(pointIDs) == 0 {
		return nil
	}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"points": pointIDs}, nil)
}

// EnsureCollection checks the collection's vector size, creating it with cosine distance when absent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"
	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &info)
	var oe *OperationError
	if errors.As(err, &oe) && oe.StatusCode == http.StatusNotFound {
		create := map[string]any{"vectors": map[string]any{"size": s.cfg.VectorDim, "distance": "Cosine"}}
		if err := s.doJSON(ctx, op, http.MethodPut, s.collectionPath(""), create, nil); err != nil {
			return err
		}
		s.distance = "Cosine"
		s.log.Info("qdrant collection created", "collection", s.cfg.Collection, "vector_dim", s.cfg.VectorDim)
		return nil
	}
	if err != nil {
		return err
	}
	size := info.Config.Params.Vectors.Size
	if size != 0 && size != s.cfg.VectorDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message:   fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d", s.cfg.Collection, s.cfg.VectorDim, size),
		}
	}
	s.distance = strings.TrimSpace(info.Config.Params.Vectors.Distance)
	return nil
}

func (s *Store) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*maxErrorBodyBytes))
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := OperationErrorQueryFailed
		if resp.StatusCode == http.StatusNotFound {
			code = OperationErrorNotFound
		}
		return &OperationError{
			Code:       code,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if msg := envelopeStatusError(env.Status); msg != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func envelopeStatusError(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		if strings.EqualFold(str, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", str)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &obj) == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "qdrant status=" + status
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func (s *Store) qualifyNamespace(namespace string) string {
	ns := strings.TrimSpace(namespace)
	if ns == "" {
		return s.nsPrefix
	}
	return s.nsPrefix + ":" + ns
}

func (s *Store) pointID(qualifiedNS, id string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(qualifiedNS+"|"+id)).String()
}

func (s *Store) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return strings.TrimSpace(str)
	}
	var n int64
	if json.Unmarshal(raw, &n) == nil {
		return fmt.Sprintf("%d", n)
	}
	return strings.TrimSpace(string(raw))
}

// normalizeScore maps distance metrics onto higher-is-better.
func (s *Store) normalizeScore(score float64) float64 {
	switch strings.ToLower(s.distance) {
	case "euclid", "manhattan":
		if score < 0 {
			score = -score
		}
		return 1.0 / (1.0 + score)
	default:
		return score
	}
}
