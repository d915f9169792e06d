package deck

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/realtime"
)

// EmitFunc delivers one stream event. An error aborts the stream.
type EmitFunc func(ev realtime.Event) error

// Stream generates a deck like GenerateAdvanced but reports progress as events. Slides are
// written in outline order so clients can render them as they arrive. The last event is done
// (carrying the Result) or error.
func (s *Service) Stream(ctx context.Context, req Request, emit EmitFunc) error {
	if err := req.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	topic := strings.Join(req.TopicList(), ", ")
	id := uuid.New()
	lessonID := id.String()
	log := s.log.With("pipeline", pipelineStream, "lessonId", lessonID)

	var (
		mu      sync.Mutex
		sendErr error
	)
	send := func(ev realtime.Event) error {
		mu.Lock()
		defer mu.Unlock()
		if sendErr != nil {
			return sendErr
		}
		ev.LessonID = lessonID
		if err := emit(ev); err != nil {
			sendErr = err
			cancel()
			return err
		}
		if s.bus != nil {
			if err := s.bus.Publish(ctx, ev); err != nil {
				log.Warn("progress publish failed", "type", string(ev.Type), "error", err)
			}
		}
		return nil
	}
	fail := func(err error) error {
		log.Error("deck stream failed", "error", err)
		mu.Lock()
		aborted := sendErr != nil
		mu.Unlock()
		if !aborted {
			_ = send(realtime.Event{Type: realtime.EventError, Message: err.Error()})
		}
		return err
	}

	if err := send(realtime.Event{Type: realtime.EventStatus, Message: "Creating outline..."}); err != nil {
		return err
	}
	outline := s.outliner.CreateOutline(ctx, topic, req.Subject, req.GradeLevel)
	meta := s.metadata(req, topic, outline.Standards)
	meta.LessonID = id
	if err := send(realtime.Event{Type: realtime.EventOutline, Data: outline.Entries}); err != nil {
		return err
	}

	built := make([]lesson.Slide, 0, len(outline.Entries))
	for i, entry := range outline.Entries {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		idx := realtime.IndexPtr(i)
		if err := send(realtime.Event{Type: realtime.EventStatus, Index: idx, Message: fmt.Sprintf("Generating slide %d...", i+1)}); err != nil {
			return err
		}
		if err := send(realtime.Event{Type: realtime.EventSlideStart, Index: idx, Data: map[string]any{
			"title":     entry.Title,
			"slideType": entry.SlideType,
		}}); err != nil {
			return err
		}
		var sl lesson.Slide
		_ = s.stage(ctx, pipelineStream, "content", func(ctx context.Context) error {
			sl = s.content.StreamSlide(ctx, i, entry, req.Subject, req.GradeLevel, func(delta string) {
				_ = send(realtime.Event{Type: realtime.EventSlideChunk, Index: idx, Message: delta})
			})
			return nil
		})
		if err := send(realtime.Event{Type: realtime.EventSlideEnd, Index: idx, Data: sl}); err != nil {
			return err
		}
		built = append(built, sl)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if err := send(realtime.Event{Type: realtime.EventStatus, Message: "Generating visuals..."}); err != nil {
		return err
	}
	res := s.finish(ctx, pipelineStream, finishInput{meta: meta, slides: built, subject: req.Subject, expected: req.NumSlides})
	if outline.Fallback {
		res.Warnings = append(res.Warnings, "outline generation failed; fallback outline used")
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if err := send(realtime.Event{Type: realtime.EventStatus, Message: "Generation complete"}); err != nil {
		return err
	}
	log.Info("deck streamed", "slides", len(res.Slides), "visuals", res.VisualsGenerated)
	return send(realtime.Event{Type: realtime.EventDone, Data: res})
}
