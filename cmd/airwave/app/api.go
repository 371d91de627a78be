package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/airwave-tv/airwave/internal"
)

// ChannelSummary describes one configured channel.
type ChannelSummary struct {
	Slug           string  `json:"slug" doc:"URL-safe channel identifier"`
	Name           string  `json:"name" doc:"Display name"`
	Type           string  `json:"type" doc:"Playback order: sequential or shuffle" example:"shuffle"`
	Started        bool    `json:"started" doc:"Whether the channel clock is running"`
	VideoCount     int     `json:"videoCount" doc:"Videos in the compiled program"`
	SegmentCount   int     `json:"segmentCount" doc:"Segments in one program loop"`
	TotalDurationS float64 `json:"totalDurationS" doc:"Length of one program loop in seconds"`
	PlaylistURL    string  `json:"playlistUrl" doc:"Root-relative live playlist URL"`
}

type ChannelListResponse struct {
	Body struct {
		Channels []ChannelSummary `json:"channels"`
	}
}

type ChannelResponse struct {
	Body ChannelSummary
}

type slugInput struct {
	Slug string `path:"slug" maxLength:"64" example:"example" doc:"Channel slug"`
}

type guideInput struct {
	Slug  string `path:"slug" maxLength:"64" example:"example" doc:"Channel slug"`
	NowMS int64  `query:"nowMS" doc:"Override wall clock in Unix milliseconds (for testing)"`
}

type GuideResponse struct {
	Body struct {
		Slug    string          `json:"slug"`
		Entries []ScheduleEntry `json:"entries"`
	}
}

type GenerationResponse struct {
	Body generationProgress
}

type ReloadResponse struct {
	Body struct {
		Reloaded bool `json:"reloaded" doc:"Whether the definitions were reloaded successfully"`
		Channels int  `json:"channels" doc:"Channels configured after the reload"`
	}
}

type VersionResponse struct {
	Body struct {
		Version string `json:"version"`
	}
}

func summarizeChannel(ch *Channel) ChannelSummary {
	sum := ChannelSummary{
		Slug:        ch.Def.Slug,
		Name:        ch.Def.Name,
		Type:        string(ch.Def.Type),
		Started:     ch.Started(),
		PlaylistURL: "/" + ch.Def.Slug + ".m3u8",
	}
	if prog := ch.program.Load(); prog != nil {
		sum.VideoCount = len(prog.videos)
		sum.SegmentCount = len(prog.records)
		sum.TotalDurationS = prog.totalDurS
	}
	return sum
}

func createListChannelsHdlr(s *Server) func(ctx context.Context, input *struct{}) (*ChannelListResponse, error) {
	return func(ctx context.Context, input *struct{}) (*ChannelListResponse, error) {
		resp := &ChannelListResponse{}
		resp.Body.Channels = []ChannelSummary{}
		for _, ch := range s.pool.list() {
			resp.Body.Channels = append(resp.Body.Channels, summarizeChannel(ch))
		}
		return resp, nil
	}
}

func createGetChannelHdlr(s *Server) func(ctx context.Context, input *slugInput) (*ChannelResponse, error) {
	return func(ctx context.Context, input *slugInput) (*ChannelResponse, error) {
		ch, ok := s.pool.get(input.Slug)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", input.Slug))
		}
		return &ChannelResponse{Body: summarizeChannel(ch)}, nil
	}
}

func createGetChannelGuideHdlr(s *Server) func(ctx context.Context, input *guideInput) (*GuideResponse, error) {
	return func(ctx context.Context, input *guideInput) (*GuideResponse, error) {
		ch, ok := s.pool.get(input.Slug)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf("channel %s not found", input.Slug))
		}
		now := time.Now()
		overridden := input.NowMS > 0
		if overridden {
			now = time.UnixMilli(input.NowMS)
		}
		resp := &GuideResponse{}
		resp.Body.Slug = input.Slug
		resp.Body.Entries = s.guideEntries(ch, now, overridden)
		if resp.Body.Entries == nil {
			resp.Body.Entries = []ScheduleEntry{}
		}
		return resp, nil
	}
}

func createGetGenerationHdlr(s *Server) func(ctx context.Context, input *struct{}) (*GenerationResponse, error) {
	return func(ctx context.Context, input *struct{}) (*GenerationResponse, error) {
		return &GenerationResponse{Body: s.scheduler.progressSnapshot()}, nil
	}
}

func createReloadHdlr(s *Server) func(ctx context.Context, input *struct{}) (*ReloadResponse, error) {
	return func(ctx context.Context, input *struct{}) (*ReloadResponse, error) {
		resp := &ReloadResponse{}
		resp.Body.Reloaded = s.watcher.trigger(ctx)
		resp.Body.Channels = len(s.pool.list())
		return resp, nil
	}
}

func createGetVersionHdlr(s *Server) func(ctx context.Context, input *struct{}) (*VersionResponse, error) {
	return func(ctx context.Context, input *struct{}) (*VersionResponse, error) {
		resp := &VersionResponse{}
		resp.Body.Version = internal.GetVersion()
		return resp, nil
	}
}

func createRouteAPI(s *Server) func(r chi.Router) {
	return func(r chi.Router) {
		config := huma.DefaultConfig("Airwave channel API", "1.0.0")
		config.Servers = []*huma.Server{
			{URL: "/api"},
		}
		config.Info.Description = "Read-only channel and guide data plus operational triggers for the airwave broadcast engine."

		api := humachi.New(r, config)

		// Register GET /channels listing all configured channels
		huma.Register(api, huma.Operation{
			OperationID: "list-channels",
			Method:      http.MethodGet,
			Path:        "/channels",
			Summary:     "List all configured channels",
			Tags:        []string{"channels"},
		}, createListChannelsHdlr(s))

		// Register GET /channels/{slug}
		huma.Register(api, huma.Operation{
			OperationID: "get-channel",
			Method:      http.MethodGet,
			Path:        "/channels/{slug}",
			Summary:     "Get one channel",
			Description: "Get state and program totals for the channel with the given slug.",
			Tags:        []string{"channels"},
			Errors:      []int{404},
		}, createGetChannelHdlr(s))

		// Register GET /channels/{slug}/guide
		huma.Register(api, huma.Operation{
			OperationID: "get-channel-guide",
			Method:      http.MethodGet,
			Path:        "/channels/{slug}/guide",
			Summary:     "Get the programming-day guide for one channel",
			Description: "Entries cover the 03:00 to 03:00 day around the current time.",
			Tags:        []string{"guide"},
			Errors:      []int{404},
		}, createGetChannelGuideHdlr(s))

		// Register GET /generation
		huma.Register(api, huma.Operation{
			OperationID: "get-generation",
			Method:      http.MethodGet,
			Path:        "/generation",
			Summary:     "Get transcode queue progress",
			Tags:        []string{"generation"},
		}, createGetGenerationHdlr(s))

		// Register POST /reload
		huma.Register(api, huma.Operation{
			OperationID: "reload-definitions",
			Method:      http.MethodPost,
			Path:        "/reload",
			Summary:     "Reload the channel definitions file now",
			Description: "Forces the reload that otherwise waits for the next mtime poll.",
			Tags:        []string{"channels"},
		}, createReloadHdlr(s))

		// Register GET /version
		huma.Register(api, huma.Operation{
			OperationID: "get-version",
			Method:      http.MethodGet,
			Path:        "/version",
			Summary:     "Get the server version",
			Tags:        []string{"info"},
		}, createGetVersionHdlr(s))
	}
}
