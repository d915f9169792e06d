package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/http/response"
	"github.com/yungbote/lessonforge-backend/internal/modules/activity"
	"github.com/yungbote/lessonforge-backend/internal/modules/deck"
	"github.com/yungbote/lessonforge-backend/internal/modules/doubt"
	"github.com/yungbote/lessonforge-backend/internal/modules/lessonplan"
	"github.com/yungbote/lessonforge-backend/internal/modules/textbook"
	"github.com/yungbote/lessonforge-backend/internal/modules/visuals"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
	"github.com/yungbote/lessonforge-backend/internal/platform/stockphoto"
	"github.com/yungbote/lessonforge-backend/internal/realtime"
	"github.com/yungbote/lessonforge-backend/internal/services"
)

type fakeDeck struct {
	structuredErr error
	lastLevel     lesson.DifferentiationLevel
	lastPaid      bool
	exportErr     error
}

func (f *fakeDeck) GenerateStructured(_ context.Context, req deck.Request) (*deck.Result, error) {
	if f.structuredErr != nil {
		return nil, f.structuredErr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &deck.Result{Deck: lesson.Deck{Title: "Motion: Complete Teaching Deck"}, Warnings: []string{}}, nil
}

func (f *fakeDeck) Stream(_ context.Context, _ deck.Request, emit deck.EmitFunc) error {
	events := []realtime.Event{
		{Type: realtime.EventStatus, Message: "Creating outline..."},
		{Type: realtime.EventSlideStart, Index: realtime.IndexPtr(0)},
		{Type: realtime.EventSlideChunk, Index: realtime.IndexPtr(0), Message: "Velocity"},
		{Type: realtime.EventSlideEnd, Index: realtime.IndexPtr(0)},
		{Type: realtime.EventDone},
	}
	for _, ev := range events {
		if err := emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeDeck) Modify(_ context.Context, req deck.ModifyRequest) (*deck.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &deck.Result{Deck: lesson.Deck{Title: "Modified"}}, nil
}

func (f *fakeDeck) Differentiate(_ context.Context, core lesson.Deck, level lesson.DifferentiationLevel) lesson.Deck {
	f.lastLevel = level
	out := core.Clone()
	out.Slides = out.Slides[:1]
	return out
}

func (f *fakeDeck) RouteVisuals(_ context.Context, texts []visuals.SlideText, _ string, paid bool) []visuals.RoutingDecision {
	f.lastPaid = paid
	out := make([]visuals.RoutingDecision, len(texts))
	vt := visuals.TypeMath
	by := visuals.RendererLaTeX
	out[0] = visuals.RoutingDecision{VisualType: &vt, GeneratedBy: &by, Confidence: 90, EstimatedCost: 0.5}
	return out
}

func (f *fakeDeck) Export(_ context.Context, d lesson.Deck, w io.Writer) (string, error) {
	if f.exportErr != nil {
		return "", f.exportErr
	}
	_, err := io.WriteString(w, "# "+d.Title)
	return "text/markdown; charset=utf-8", err
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorEnvelope {
	t.Helper()
	var env response.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestGenerateDeckMapsErrors(t *testing.T) {
	fd := &fakeDeck{}
	h := NewDeckHandler(logger.NewNop(), fd)
	r := newEngine()
	r.POST("/generate-deck", h.GenerateDeck)

	rec := doJSON(t, r, http.MethodPost, "/generate-deck", `{"subject":"Physics","gradeLevel":"9"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apierr.CodeInvalidRequest, env.Error.Code)
	assert.Equal(t, "no topics provided", env.Error.Message)

	fd.structuredErr = apierr.GenerationFailed(errors.New("generate deck: upstream timeout"))
	rec = doJSON(t, r, http.MethodPost, "/generate-deck", `{"topics":["Motion"],"subject":"Physics","gradeLevel":"9"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=%d got=%d", http.StatusInternalServerError, rec.Code)
	}
	assert.Equal(t, apierr.CodeGenerationFailed, decodeEnvelope(t, rec).Error.Code)

	rec = doJSON(t, r, http.MethodPost, "/generate-deck", `{"topics":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateDeckAdvancedStreamsNDJSON(t *testing.T) {
	h := NewDeckHandler(logger.NewNop(), &fakeDeck{})
	r := newEngine()
	r.POST("/generate-deck-advanced", h.GenerateDeckAdvanced)

	rec := doJSON(t, r, http.MethodPost, "/generate-deck-advanced", `{"topic":"Motion","subject":"Physics","gradeLevel":"9"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	var types []realtime.EventType
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		var ev realtime.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		if ev.Seq != len(types)+1 {
			t.Fatalf("seq: want=%d got=%d", len(types)+1, ev.Seq)
		}
		types = append(types, ev.Type)
	}
	want := []realtime.EventType{
		realtime.EventStatus, realtime.EventSlideStart, realtime.EventSlideChunk, realtime.EventSlideEnd, realtime.EventDone,
	}
	assert.Equal(t, want, types)
}

func TestGenerateDeckAdvancedRejectsBeforeStreaming(t *testing.T) {
	h := NewDeckHandler(logger.NewNop(), &fakeDeck{})
	r := newEngine()
	r.POST("/generate-deck-advanced", h.GenerateDeckAdvanced)

	rec := doJSON(t, r, http.MethodPost, "/generate-deck-advanced", `{"topic":"Motion","gradeLevel":"9"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d", http.StatusBadRequest, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); strings.Contains(ct, "ndjson") {
		t.Fatalf("validation error should be plain JSON, got content-type %q", ct)
	}
}

func TestModifyDeckRequiresFeedback(t *testing.T) {
	h := NewDeckHandler(logger.NewNop(), &fakeDeck{})
	r := newEngine()
	r.POST("/modify-deck", h.ModifyDeck)

	rec := doJSON(t, r, http.MethodPost, "/modify-deck", `{"currentDeck":{"title":"Motion"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/modify-deck", `{"currentDeck":{"title":"Motion"},"feedback":"more examples"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Modified"`)
}

func TestDifferentiateDeckValidatesLevel(t *testing.T) {
	fd := &fakeDeck{}
	h := NewDeckHandler(logger.NewNop(), fd)
	r := newEngine()
	r.POST("/differentiate-deck", h.DifferentiateDeck)

	body := `{"level":"%s","deck":{"title":"Motion","slides":[{"title":"A","content":"x","order":0},{"title":"B","content":["y","z"],"order":1}]}}`

	rec := doJSON(t, r, http.MethodPost, "/differentiate-deck", strings.Replace(body, "%s", "advanced", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/differentiate-deck", strings.Replace(body, "%s", "support", 1))
	require.Equal(t, http.StatusOK, rec.Code)
	if fd.lastLevel != lesson.DiffSupport {
		t.Fatalf("level: want=%q got=%q", lesson.DiffSupport, fd.lastLevel)
	}
	var out struct {
		Level string      `json:"level"`
		Deck  lesson.Deck `json:"deck"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "SUPPORT", out.Level)
	assert.Len(t, out.Deck.Slides, 1)

	rec = doJSON(t, r, http.MethodPost, "/differentiate-deck", `{"level":"CORE","deck":{"slides":[]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportDeck(t *testing.T) {
	fd := &fakeDeck{}
	h := NewDeckHandler(logger.NewNop(), fd)
	r := newEngine()
	r.POST("/export-deck", h.ExportDeck)

	rec := doJSON(t, r, http.MethodPost, "/export-deck", `{"title":"Optics","slides":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/export-deck", `{"title":"Optics","slides":[{"title":"A","content":"x","order":0}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "# Optics", rec.Body.String())

	fd.exportErr = apierr.New(http.StatusNotImplemented, apierr.CodeUnavailable, errors.New("no document renderer configured"))
	rec = doJSON(t, r, http.MethodPost, "/export-deck", `{"title":"Optics","slides":[{"title":"A","content":"x","order":0}]}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, apierr.CodeUnavailable, decodeEnvelope(t, rec).Error.Code)
}

func TestRouteVisualsReturnsTotalCost(t *testing.T) {
	fd := &fakeDeck{}
	h := NewDeckHandler(logger.NewNop(), fd)
	r := newEngine()
	r.POST("/route-visuals", h.RouteVisuals)

	rec := doJSON(t, r, http.MethodPost, "/route-visuals", `{"slides":[],"subject":"Math"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/route-visuals", `{"slides":[{"title":"Quadratics","content":"x^2 + 2x + 1 = 0"},{"title":"Recap","content":"notes"}],"subject":"Math","paidEnabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Decisions []visuals.RoutingDecision `json:"decisions"`
		TotalCost float64                   `json:"totalCost"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Decisions, 2)
	assert.True(t, out.Decisions[1].Skip())
	assert.InDelta(t, 0.5, out.TotalCost, 1e-9)
	assert.True(t, fd.lastPaid)
}

type fakePlanner struct{}

func (fakePlanner) Generate(_ context.Context, req lessonplan.Request) (*lessonplan.Plan, error) {
	if len(req.Topics) == 0 {
		return nil, apierr.BadRequest(errors.New("no topics provided"))
	}
	return &lessonplan.Plan{Title: req.Topics[0]}, nil
}

func (fakePlanner) Modify(context.Context, lessonplan.ModifyRequest) (*lessonplan.Plan, error) {
	return nil, errors.New("llm down")
}

func (fakePlanner) CurriculumPlan(_ context.Context, req lessonplan.CurriculumRequest) (*lessonplan.CurriculumPlan, error) {
	if req.Subject == "" {
		return nil, apierr.BadRequest(errors.New("gradeLevel and subject are required"))
	}
	return &lessonplan.CurriculumPlan{Subject: req.Subject, GradeLevel: req.GradeLevel, Chapters: []lessonplan.ChapterPlan{{Name: req.Chapters[0].Name}}}, nil
}

func TestLessonPlanHandler(t *testing.T) {
	h := NewLessonPlanHandler(logger.NewNop(), fakePlanner{})
	r := newEngine()
	r.POST("/generate-lesson-plan", h.GenerateLessonPlan)
	r.POST("/modify-lesson-plan", h.ModifyLessonPlan)

	rec := doJSON(t, r, http.MethodPost, "/generate-lesson-plan", `{"topics":["Fractions"],"subject":"Math","gradeLevel":"6"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fractions")

	rec = doJSON(t, r, http.MethodPost, "/generate-lesson-plan", `{"subject":"Math"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/modify-lesson-plan", `{"feedback":"shorter"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apierr.CodeGenerationFailed, decodeEnvelope(t, rec).Error.Code)
}

func TestGenerateCurriculumPlan(t *testing.T) {
	h := NewLessonPlanHandler(logger.NewNop(), fakePlanner{})
	r := newEngine()
	r.POST("/generate-curriculum-plan", h.GenerateCurriculumPlan)

	rec := doJSON(t, r, http.MethodPost, "/generate-curriculum-plan",
		`{"gradeLevel":"7","subject":"Science","chapters":[{"name":"Heat","topics":[{"name":"Conduction"}]}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Heat"`)

	rec = doJSON(t, r, http.MethodPost, "/generate-curriculum-plan", `{"gradeLevel":"7"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/generate-curriculum-plan", `{"chapters":"Heat"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeIndexParser struct{ got textbook.Request }

func (f *fakeIndexParser) ParseIndex(_ context.Context, req textbook.Request) (*textbook.Index, error) {
	f.got = req
	if req.RawText == "" {
		return nil, apierr.BadRequest(errors.New("rawText is required"))
	}
	return &textbook.Index{Chapters: []textbook.TopicNode{{ID: "ch-1", Name: "Matter", Subtopics: []textbook.TopicNode{}}}}, nil
}

func TestTextbookHandlerParseIndex(t *testing.T) {
	fp := &fakeIndexParser{}
	h := NewTextbookHandler(logger.NewNop(), fp)
	r := newEngine()
	r.POST("/parse-index", h.ParseIndex)

	rec := doJSON(t, r, http.MethodPost, "/parse-index", `{"rawText":"1 Matter ... 3","subject":"Science","gradeLevel":"6"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "6", fp.got.GradeLevel)
	assert.Contains(t, rec.Body.String(), `"id":"ch-1"`)

	rec = doJSON(t, r, http.MethodPost, "/parse-index", `{"subject":"Science"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeEnvelope(t, rec).Error.Code)
}

type fakeActivities struct{ got activity.Request }

func (f *fakeActivities) Generate(_ context.Context, req activity.Request) (*activity.Activity, error) {
	f.got = req
	return &activity.Activity{Title: "Relay", Materials: []string{}, Steps: []string{}, LearningOutcomes: []string{}}, nil
}

func TestActivityHandlerBindsRequest(t *testing.T) {
	fa := &fakeActivities{}
	h := NewActivityHandler(logger.NewNop(), fa)
	r := newEngine()
	r.POST("/generate-activity", h.GenerateActivity)

	rec := doJSON(t, r, http.MethodPost, "/generate-activity", `{"topic":"Forces","subject":"Physics","duration":20,"activityType":"group"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	if fa.got.Duration != 20 || fa.got.ActivityType != "group" {
		t.Fatalf("request not bound: %+v", fa.got)
	}
}

type fakeSolver struct{}

func (fakeSolver) SolveText(_ context.Context, req doubt.Request) (*doubt.Response, error) {
	return &doubt.Response{Question: req.Question, Solution: "Divide both sides by 2.", Subject: "Math"}, nil
}

func (fakeSolver) FollowUp(_ context.Context, req doubt.FollowUpRequest) (*doubt.FollowUpResponse, error) {
	if req.FollowUpQuestion == "" {
		return nil, apierr.BadRequest(errors.New("followUpQuestion is required"))
	}
	return &doubt.FollowUpResponse{Answer: "Because division undoes multiplication."}, nil
}

func (fakeSolver) SolveImage(_ context.Context, req doubt.MediaRequest) (*doubt.Response, error) {
	return &doubt.Response{Question: string(req.Data), Solution: "Subtract 3 first.", Subject: req.Subject}, nil
}

func (fakeSolver) SolveVoice(context.Context, doubt.MediaRequest) (*doubt.Response, error) {
	return nil, apierr.New(http.StatusServiceUnavailable, apierr.CodeUnavailable, errors.New("voice questions are not configured"))
}

func multipartUpload(t *testing.T, r http.Handler, path, field, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDoubtHandlerMediaUploads(t *testing.T) {
	h := NewDoubtHandler(logger.NewNop(), fakeSolver{})
	r := newEngine()
	r.POST("/solve-doubt/image", h.SolveImage)
	r.POST("/solve-doubt/voice", h.SolveVoice)

	rec := multipartUpload(t, r, "/solve-doubt/image", "image", "q.png", []byte("2x + 3 = 11"), map[string]string{"subject": "Math"})
	require.Equal(t, http.StatusOK, rec.Code)
	var out doubt.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "2x + 3 = 11", out.Question)
	assert.Equal(t, "Math", out.Subject)

	rec = multipartUpload(t, r, "/solve-doubt/image", "", "", nil, map[string]string{"subject": "Math"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = multipartUpload(t, r, "/solve-doubt/image", "image", "big.png", make([]byte, maxUploadBytes+1), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = multipartUpload(t, r, "/solve-doubt/voice", "audio", "q.webm", []byte{1, 2, 3}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apierr.CodeUnavailable, decodeEnvelope(t, rec).Error.Code)
}

func TestDoubtHandler(t *testing.T) {
	h := NewDoubtHandler(logger.NewNop(), fakeSolver{})
	r := newEngine()
	r.POST("/solve-doubt/text", h.SolveText)
	r.POST("/doubt/follow-up", h.FollowUp)

	rec := doJSON(t, r, http.MethodPost, "/solve-doubt/text", `{"question":"2x = 8"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Divide both sides")

	rec = doJSON(t, r, http.MethodPost, "/doubt/follow-up", `{"originalQuestion":"2x = 8"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakePhotos struct {
	img  *stockphoto.Image
	data []byte
}

func (f *fakePhotos) FetchImage(context.Context, string, string) (*stockphoto.Image, error) {
	if f.img == nil {
		return nil, nil
	}
	cp := *f.img
	return &cp, nil
}

func (f *fakePhotos) FetchBatch(context.Context, []stockphoto.Request) []*stockphoto.Image {
	return nil
}

func (f *fakePhotos) Download(_ context.Context, img *stockphoto.Image) error {
	img.Data = f.data
	return nil
}

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newImageHandler(t *testing.T, photos stockphoto.Service) *ImageHandler {
	t.Helper()
	log := logger.NewNop()
	ph, err := services.NewPlaceholderImageService(log)
	require.NoError(t, err)
	return NewImageHandler(log, photos, ph, services.NewImageProcessor(log))
}

func TestImageSearchFallsBackToPlaceholderURL(t *testing.T) {
	h := newImageHandler(t, &fakePhotos{})
	r := newEngine()
	r.GET("/images/search", h.Search)

	rec := doJSON(t, r, http.MethodGet, "/images/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/images/search?query=plant+cell&subject=Biology", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Image          *stockphoto.Image `json:"image"`
		PlaceholderURL string            `json:"placeholderUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Nil(t, out.Image)
	assert.Equal(t, "/api/images/placeholder?query=plant+cell&subject=Biology", out.PlaceholderURL)
}

func TestImageSearchReturnsProcessedJPEG(t *testing.T) {
	photos := &fakePhotos{
		img:  &stockphoto.Image{URL: "https://images.example/cell.png", Source: "unsplash", Attribution: "Photo by A on Unsplash"},
		data: samplePNG(t, 200, 100),
	}
	h := newImageHandler(t, photos)
	r := newEngine()
	r.GET("/images/search", h.Search)

	rec := doJSON(t, r, http.MethodGet, "/images/search?query=cell&format=jpeg&width=64&height=64", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Photo by A on Unsplash", rec.Header().Get("X-Image-Attribution"))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	if format != "jpeg" || cfg.Width != 64 || cfg.Height != 64 {
		t.Fatalf("image: want=jpeg 64x64 got=%s %dx%d", format, cfg.Width, cfg.Height)
	}

	rec = doJSON(t, r, http.MethodGet, "/images/search?query=cell", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"unsplash"`)
}

func TestPlaceholderRendersPNG(t *testing.T) {
	h := newImageHandler(t, nil)
	r := newEngine()
	r.GET("/images/placeholder", h.Placeholder)

	rec := doJSON(t, r, http.MethodGet, "/images/placeholder?query=photosynthesis&subject=Science&width=320&height=180", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	if cfg.Width != 320 || cfg.Height != 180 {
		t.Fatalf("size: want=320x180 got=%dx%d", cfg.Width, cfg.Height)
	}

	rec = doJSON(t, r, http.MethodGet, "/images/placeholder?width=99999", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
