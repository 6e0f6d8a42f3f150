package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/Clark-Hu/moviecatalog/internal/domain"
)

func FuzzNotifierMessage(f *testing.F) {
	f.Add("Heat", "heat")
	f.Add("<script>alert(1)</script>", "")
	f.Add("Tom & Jerry", "tom-jerry")

	f.Fuzz(func(t *testing.T, title, slug string) {
		sender := &fakeSender{}
		n := NewNotifier(sender, "https://okko.tv")
		if err := n.MoviePublished(context.Background(), domain.Movie{Title: title, Slug: slug}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sender.messages) != 1 {
			t.Fatalf("expected one message, got %d", len(sender.messages))
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(sender.messages[0], "<b>"), "</b>")
		if strings.ContainsAny(inner, "<>") {
			t.Fatalf("title not escaped: %q", sender.messages[0])
		}
	})
}
