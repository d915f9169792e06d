package stockphoto

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lessonforge-backend/internal/platform/envutil"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const (
	defaultUnsplashURL = "https://api.unsplash.com"
	defaultPexelsURL   = "https://api.pexels.com"
	requestTimeout     = 15 * time.Second
	maxImageBytes      = 20 << 20
)

// Image is a stock photo search hit. Data is filled only by Download.
type Image struct {
	URL             string `json:"url"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographerUrl"`
	Source          string `json:"source"`
	Attribution     string `json:"attribution"`
	Data            []byte `json:"-"`
}

// Request is one entry of a batch fetch.
type Request struct {
	Query       string `json:"query"`
	Orientation string `json:"orientation"`
}

type Service interface {
	// FetchImage tries Unsplash then Pexels. It returns nil, nil when nothing was found.
	FetchImage(ctx context.Context, query, orientation string) (*Image, error)
	FetchBatch(ctx context.Context, reqs []Request) []*Image
	Download(ctx context.Context, img *Image) error
}

type Config struct {
	UnsplashKey string
	PexelsKey   string
	UnsplashURL string
	PexelsURL   string
	HTTPClient  *http.Client
}

func ConfigFromEnv() Config {
	return Config{
		UnsplashKey: envutil.String("UNSPLASH_ACCESS_KEY", envutil.String("UNSPLASH_API_KEY", "")),
		PexelsKey:   envutil.String("PEXELS_API_KEY", ""),
	}
}

type service struct {
	log       *logger.Logger
	http      *http.Client
	providers []provider
}

type provider interface {
	name() string
	search(ctx context.Context, c *http.Client, query, orientation string) (*Image, error)
}

func New(log *logger.Logger, cfg Config) Service {
	if log == nil {
		log = logger.NewNop()
	}
	l := log.With("service", "StockPhotoService")
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}

	var providers []provider
	if cfg.UnsplashKey != "" {
		providers = append(providers, unsplash{key: cfg.UnsplashKey, base: orDefault(cfg.UnsplashURL, defaultUnsplashURL)})
	} else {
		l.Warn("UNSPLASH_ACCESS_KEY not set; Unsplash disabled")
	}
	if cfg.PexelsKey != "" {
		providers = append(providers, pexels{key: cfg.PexelsKey, base: orDefault(cfg.PexelsURL, defaultPexelsURL)})
	} else {
		l.Warn("PEXELS_API_KEY not set; Pexels disabled")
	}
	return &service{log: l, http: client, providers: providers}
}

func (s *service) FetchImage(ctx context.Context, query, orientation string) (*Image, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if orientation == "" {
		orientation = "landscape"
	}
	for _, p := range s.providers {
		img, err := p.search(ctx, s.http, query, orientation)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("stock photo provider failed", "provider", p.name(), "query", query, "error", err)
			continue
		}
		if img != nil {
			s.log.Debug("stock photo found", "provider", p.name(), "query", query)
			return img, nil
		}
	}
	s.log.Info("no stock photo found", "query", query)
	return nil, nil
}

// FetchBatch fetches concurrently; result i is nil when request i found nothing.
func (s *service) FetchBatch(ctx context.Context, reqs []Request) []*Image {
	out := make([]*Image, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, r := range reqs {
		i, r := i, r
		g.Go(func() error {
			img, err := s.FetchImage(gctx, r.Query, r.Orientation)
			if err == nil {
				out[i] = img
			}
			return nil
		})
	}
	_ = g.Wait()

	found := 0
	for _, img := range out {
		if img != nil {
			found++
		}
	}
	s.log.Info("stock photo batch", "found", found, "requested", len(reqs))
	return out
}

func (s *service) Download(ctx context.Context, img *Image) error {
	if img == nil || img.URL == "" {
		return fmt.Errorf("image url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	img.Data = data
	return nil
}

type unsplash struct{ key, base string }

func (unsplash) name() string { return "unsplash" }

func (u unsplash) search(ctx context.Context, c *http.Client, query, orientation string) (*Image, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("orientation", orientation)
	q.Set("per_page", "1")
	q.Set("content_filter", "high")

	var body struct {
		Results []struct {
			URLs struct {
				Regular string `json:"regular"`
			} `json:"urls"`
			User struct {
				Name  string `json:"name"`
				Links struct {
					HTML string `json:"html"`
				} `json:"links"`
			} `json:"user"`
		} `json:"results"`
	}
	if err := getJSON(ctx, c, u.base+"/search/photos?"+q.Encode(), "Client-ID "+u.key, &body); err != nil {
		return nil, err
	}
	if len(body.Results) == 0 || body.Results[0].URLs.Regular == "" {
		return nil, nil
	}
	r := body.Results[0]
	return &Image{
		URL:             r.URLs.Regular,
		Photographer:    r.User.Name,
		PhotographerURL: r.User.Links.HTML,
		Source:          "unsplash",
		Attribution:     fmt.Sprintf("Photo by %s on Unsplash (%s)", r.User.Name, r.User.Links.HTML),
	}, nil
}

type pexels struct{ key, base string }

func (pexels) name() string { return "pexels" }

func (p pexels) search(ctx context.Context, c *http.Client, query, orientation string) (*Image, error) {
	switch orientation {
	case "landscape", "portrait", "square":
	default:
		orientation = "landscape"
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("orientation", orientation)
	q.Set("per_page", "1")
	q.Set("size", "large")

	var body struct {
		Photos []struct {
			Src struct {
				Large string `json:"large"`
			} `json:"src"`
			Photographer    string `json:"photographer"`
			PhotographerURL string `json:"photographer_url"`
		} `json:"photos"`
	}
	if err := getJSON(ctx, c, p.base+"/v1/search?"+q.Encode(), p.key, &body); err != nil {
		return nil, err
	}
	if len(body.Photos) == 0 || body.Photos[0].Src.Large == "" {
		return nil, nil
	}
	ph := body.Photos[0]
	return &Image{
		URL:             ph.Src.Large,
		Photographer:    ph.Photographer,
		PhotographerURL: ph.PhotographerURL,
		Source:          "pexels",
		Attribution:     fmt.Sprintf("Photo by %s on Pexels (%s)", ph.Photographer, ph.PhotographerURL),
	}, nil
}

func getJSON(ctx context.Context, c *http.Client, rawURL, auth string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", auth)
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimRight(v, "/")
}
