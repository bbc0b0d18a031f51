// Package research suggests a video topic from history subreddits when the
// caller does not provide one.
package research

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"timeline-pipeline/config"
)

type Discoverer struct {
	cfg    *config.Config
	client *reddit.Client
}

func New(cfg *config.Config) (*Discoverer, error) {
	client, err := reddit.NewReadonlyClient()
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}
	return &Discoverer{cfg: cfg, client: client}, nil
}

// SuggestTopic returns the highest-scoring recent post title across the
// configured subreddits, cleaned up for use as a timeline topic.
func (d *Discoverer) SuggestTopic(ctx context.Context) (string, error) {
	log.Println("[research] Looking for a trending history topic...")

	var bestTitle string
	bestScore := d.cfg.Research.MinScore - 1

	for _, sub := range d.cfg.Research.Subreddits {
		posts, _, err := d.client.Subreddit.TopPosts(ctx, sub, &reddit.ListPostOptions{
			ListOptions: reddit.ListOptions{Limit: 25},
			Time:        d.cfg.Research.TimeWindow,
		})
		if err != nil {
			log.Printf("[research] r/%s warning: %v", sub, err)
			continue
		}
		for _, post := range posts {
			if post.Score > bestScore && post.Title != "" {
				bestScore = post.Score
				bestTitle = post.Title
			}
		}
	}

	if bestTitle == "" {
		return "", fmt.Errorf("no post above score %d in %v", d.cfg.Research.MinScore, d.cfg.Research.Subreddits)
	}

	topic := cleanTitle(bestTitle)
	log.Printf("[research] Suggested topic (score %d): %q", bestScore, topic)
	return topic, nil
}

// cleanTitle strips the question framing reddit titles often carry so the
// remainder reads as a subject.
func cleanTitle(title string) string {
	t := strings.TrimSpace(title)
	for _, prefix := range []string{"TIL that ", "TIL ", "Why did ", "Why was ", "What was ", "How did "} {
		if strings.HasPrefix(t, prefix) {
			t = strings.TrimPrefix(t, prefix)
			break
		}
	}
	return strings.TrimRight(t, "?!. ")
}
