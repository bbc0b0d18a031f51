// Package publish uploads a finished timeline video to YouTube. Entirely
// optional: the pipeline's result is the local video path whether or not
// publishing is enabled.
package publish

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"

	"timeline-pipeline/config"
	"timeline-pipeline/types"
)

type Publisher struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Publisher {
	return &Publisher{cfg: cfg}
}

// Run uploads the video with metadata derived from the plan and returns the
// YouTube video id and watch URL.
func (p *Publisher) Run(ctx context.Context, videoFile string, plan *types.Plan) (string, string, error) {
	log.Println("[publish] Authenticating with YouTube API...")

	client, err := p.oauthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	title, description, tags := buildMetadata(plan)
	log.Printf("[publish] Uploading: %q", title)

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                title,
			Description:          description,
			Tags:                 tags,
			CategoryId:           p.cfg.Publish.CategoryID,
			DefaultLanguage:      p.cfg.Publish.DefaultLanguage,
			DefaultAudioLanguage: p.cfg.Publish.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: p.cfg.Publish.Visibility,
		},
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)
	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Printf("[publish] Uploaded: %s", videoURL)
	return uploaded.Id, videoURL, nil
}

// buildMetadata derives upload metadata from the plan itself instead of a
// separate generation pass: the plan title is the video title, stage names
// become chapters in the description, stage titles seed the tags.
func buildMetadata(plan *types.Plan) (title, description string, tags []string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("The historical evolution of %s, stage by stage.\n\n", plan.Topic))
	for _, stage := range plan.Stages {
		sb.WriteString(fmt.Sprintf("%d. %s\n", stage.Index+1, stage.Title))
	}

	tags = append(tags, "history", "timeline", plan.Topic)
	for _, stage := range plan.Stages {
		tags = append(tags, stage.Title)
	}
	return plan.Title, sb.String(), tags
}

// oauthClient builds an OAuth2 HTTP client from env credentials. The
// refresh token is seeded with an expired token so the first request
// forces a refresh.
func (p *Publisher) oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}
