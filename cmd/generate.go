package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yungbote/lessonforge-backend/internal/app"
	"github.com/yungbote/lessonforge-backend/internal/modules/activity"
	"github.com/yungbote/lessonforge-backend/internal/modules/deck"
	"github.com/yungbote/lessonforge-backend/internal/modules/lessonplan"
	"github.com/yungbote/lessonforge-backend/internal/realtime"
)

const (
	kindDeck       = "deck"
	kindStructured = "structured"
	kindStream     = "stream"
	kindLessonPlan = "lesson-plan"
	kindActivity   = "activity"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a deck, lesson plan or activity and print it as JSON",
	Long: `generate runs one pipeline without the HTTP server.

Kinds:
  deck         outline, per-slide content, visuals (default)
  structured   five slides per topic plus a summary in one completion
  stream       like deck but prints NDJSON progress events
  lesson-plan  sessions with timed activities
  activity     a single classroom activity

Flags can also come from the config file or LESSONFORGE_* variables,
e.g. LESSONFORGE_SUBJECT=Physics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics := viper.GetStringSlice("topics")
		if len(topics) == 0 {
			return fmt.Errorf("at least one --topic is required")
		}
		out := io.Writer(os.Stdout)
		if path := viper.GetString("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return runGenerate(ctx, a, strings.ToLower(viper.GetString("kind")), topics, out)
		})
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringSlice("topic", nil, "topic to cover (repeatable)")
	f.String("subject", "", "subject, e.g. Physics")
	f.String("grade", "8", "grade level")
	f.String("kind", kindDeck, "deck | structured | stream | lesson-plan | activity")
	f.StringSlice("levels", nil, "differentiated variants to derive: SUPPORT, EXTENSION")
	f.String("chapter", "", "chapter title for structured decks")
	f.Int("duration", 0, "class or activity length in minutes")
	f.String("out", "", "write output to this file instead of stdout")
	f.String("format", "json", "json | markdown (deck and structured kinds)")

	_ = viper.BindPFlag("topics", f.Lookup("topic"))
	_ = viper.BindPFlag("subject", f.Lookup("subject"))
	_ = viper.BindPFlag("grade", f.Lookup("grade"))
	_ = viper.BindPFlag("kind", f.Lookup("kind"))
	_ = viper.BindPFlag("levels", f.Lookup("levels"))
	_ = viper.BindPFlag("chapter", f.Lookup("chapter"))
	_ = viper.BindPFlag("duration", f.Lookup("duration"))
	_ = viper.BindPFlag("out", f.Lookup("out"))
	_ = viper.BindPFlag("format", f.Lookup("format"))
}

func runGenerate(ctx context.Context, a *app.App, kind string, topics []string, out io.Writer) error {
	subject := viper.GetString("subject")
	grade := viper.GetString("grade")
	req := deck.Request{
		Topics:     topics,
		Subject:    subject,
		GradeLevel: grade,
		Chapter:    viper.GetString("chapter"),
		Levels:     viper.GetStringSlice("levels"),
	}

	switch kind {
	case kindDeck, "":
		res, err := a.Services.Deck.GenerateAdvanced(ctx, req)
		if err != nil {
			return err
		}
		return writeDeck(ctx, a, out, res)
	case kindStructured:
		req.StructuredFormat = true
		res, err := a.Services.Deck.GenerateStructured(ctx, req)
		if err != nil {
			return err
		}
		return writeDeck(ctx, a, out, res)
	case kindStream:
		w := realtime.NewNDJSONWriter(out)
		return a.Services.Deck.Stream(ctx, req, func(ev realtime.Event) error {
			_, err := w.Write(ev)
			return err
		})
	case kindLessonPlan:
		plan, err := a.Services.LessonPlans.Generate(ctx, lessonplan.Request{
			Topics:        topics,
			Subject:       subject,
			GradeLevel:    grade,
			ClassDuration: viper.GetInt("duration"),
		})
		if err != nil {
			return err
		}
		return writeJSON(out, plan)
	case kindActivity:
		act, err := a.Services.Activities.Generate(ctx, activity.Request{
			Topic:      topics[0],
			Subject:    subject,
			GradeLevel: grade,
			Duration:   viper.GetInt("duration"),
		})
		if err != nil {
			return err
		}
		return writeJSON(out, act)
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
}

func writeDeck(ctx context.Context, a *app.App, w io.Writer, res *deck.Result) error {
	switch strings.ToLower(viper.GetString("format")) {
	case "", "json":
		return writeJSON(w, res)
	case "markdown", "md":
		_, err := a.Services.Deck.Export(ctx, res.Deck, w)
		return err
	default:
		return fmt.Errorf("unknown format %q", viper.GetString("format"))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
