package feed

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Stacker News puts post metadata in the item description as free text
// ("42 points by alice ..."). These patterns pull it back out when no
// structured field carries it.
var (
	pointsPattern   = regexp.MustCompile(`(\d+)\s+(?:points?|sats?)`)
	authorPattern   = regexp.MustCompile(`by\s+([^\s<]+)`)
	commentsPattern = regexp.MustCompile(`(\d+)\s+comments?`)
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
)

const maxDescriptionRunes = 200

// normalize converts a parsed syndication document into the territory feed.
// Item order is preserved. Malformed items still produce a record with
// empty-string defaults so positional indices stay stable.
func normalize(parsed *gofeed.Feed, territory string) *Feed {
	items := make([]Item, 0, len(parsed.Items))
	for i, src := range parsed.Items {
		items = append(items, normalizeItem(src, territory, i))
	}
	return &Feed{
		Territory: territory,
		Items:     items,
		FetchedAt: time.Now(),
	}
}

func normalizeItem(src *gofeed.Item, territory string, position int) Item {
	body := src.Description
	if body == "" {
		body = src.Content
	}
	plain := plainText(body)

	item := Item{
		ID:          itemID(src, territory, position),
		Title:       strings.TrimSpace(src.Title),
		Link:        strings.TrimSpace(src.Link),
		PublishedAt: src.Published,
		Points:      firstInt(pointsPattern, plain),
		Author:      itemAuthor(src, plain),
		Comments:    firstInt(commentsPattern, plain),
		Description: truncate(plain, maxDescriptionRunes),
	}
	if src.PublishedParsed != nil {
		item.Published = *src.PublishedParsed
	}
	return item
}

// itemID prefers the guid, then the link, then a positional fallback.
// This ordering is load-bearing: pagination and detail lookup rely on ids
// being stable across a single fetch.
func itemID(src *gofeed.Item, territory string, position int) string {
	if guid := strings.TrimSpace(src.GUID); guid != "" {
		return guid
	}
	if link := strings.TrimSpace(src.Link); link != "" {
		return link
	}
	return fmt.Sprintf("%s-%d", territory, position)
}

// itemAuthor prefers structured creator fields, then falls back to the
// "by <name>" convention in the description text.
func itemAuthor(src *gofeed.Item, plain string) string {
	if len(src.Authors) > 0 && strings.TrimSpace(src.Authors[0].Name) != "" {
		return strings.TrimSpace(src.Authors[0].Name)
	}
	if src.DublinCoreExt != nil {
		for _, creator := range src.DublinCoreExt.Creator {
			if c := strings.TrimSpace(creator); c != "" {
				return c
			}
		}
	}
	if m := authorPattern.FindStringSubmatch(plain); m != nil {
		return m[1]
	}
	return UnknownAuthor
}

func firstInt(pattern *regexp.Regexp, text string) int {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// plainText strips markup and resolves HTML entities.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, " ")))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
