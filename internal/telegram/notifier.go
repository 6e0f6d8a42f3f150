package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
)

const watchButtonText = "Go to watch!"

// Notifier announces published movies to a Telegram chat.
type Notifier struct {
	sender   Sender
	watchURL string
}

// NewNotifier returns a Notifier that links to watchURL.
func NewNotifier(sender Sender, watchURL string) *Notifier {
	return &Notifier{sender: sender, watchURL: strings.TrimRight(watchURL, "/")}
}

// MoviePublished posts the poster followed by the bold title and a watch
// button. Movies without a poster get the text message only.
func (n *Notifier) MoviePublished(ctx context.Context, movie domain.Movie) error {
	if movie.Poster != "" {
		if err := n.sender.SendPhoto(ctx, movie.Poster); err != nil {
			return fmt.Errorf("send poster: %w", err)
		}
	}

	text := fmt.Sprintf("<b>%s</b>", html.EscapeString(movie.Title))
	opts := MessageOptions{
		ReplyMarkup: &ReplyMarkup{
			InlineKeyboard: [][]InlineButton{{{Text: watchButtonText, URL: n.movieURL(movie)}}},
		},
	}
	if err := n.sender.SendMessage(ctx, text, opts); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (n *Notifier) movieURL(movie domain.Movie) string {
	if movie.Slug == "" {
		return n.watchURL
	}
	return n.watchURL + "/movie/" + movie.Slug
}
