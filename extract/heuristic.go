package extract

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/alandlunch/models"
	"golang.org/x/net/html"
)

// DefaultSectionTitle names the single section every restaurant gets.
const DefaultSectionTitle = "Lunch"

var (
	blockMatcher = cascadia.MustCompile("div, section, article")
	nameMatcher  = cascadia.MustCompile(`h1, h2, h3, h4, [class*="name"], [class*="title"]`)
	itemMatcher  = cascadia.MustCompile("div, p, li, tr")
	imageMatcher = cascadia.MustCompile("img[src]")

	rePhone     = regexp.MustCompile(`\+?\d{1,4}[\s-]?\d{2,4}[\s-]?\d{4,}`)
	// \s is ASCII only in RE2; \x{00A0} is &nbsp;.
	rePrice     = regexp.MustCompile(`\d+[.,]?\d*[\s\x{00A0}]*€`)
	reItemSplit = regexp.MustCompile(`[\s\x{00A0}]{2,}|\n`)
)

// Name and item text bounds, in characters.
const (
	minNameLen     = 2
	maxNameLen     = 100
	minItemTextLen = 5
	maxItemTextLen = 500 // exclusive
	minCategoryLen = 3
)

// Heuristic parses the serialized DOM in Go and runs Restaurants over it.
type Heuristic struct {
	BaseURL string
}

func (h Heuristic) Name() string { return "heuristic" }

// Extract reads the page HTML and returns the matched records as JSON.
func (h Heuristic) Extract(ctx context.Context, src Source) ([]byte, error) {
	rawHTML, err := src.HTML(ctx)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParsing, "rendered page is not parseable HTML", err)
	}

	data, err := json.Marshal(Restaurants(goquery.NewDocumentFromNode(root), h.BaseURL))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeParsing, "failed to serialize restaurants", err)
	}
	return data, nil
}

// Restaurants runs the block heuristics over doc. It never fails; a page
// with nothing recognizable yields an empty slice.
func Restaurants(doc *goquery.Document, baseURL string) []models.RawRestaurant {
	base, _ := url.Parse(baseURL)
	restaurants := []models.RawRestaurant{}
	seen := make(map[string]struct{})

	doc.FindMatcher(blockMatcher).Each(func(_ int, block *goquery.Selection) {
		name := strings.TrimSpace(block.FindMatcher(nameMatcher).First().Text())
		if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
			return
		}

		items := menuItems(block)
		if len(items) == 0 {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}

		restaurants = append(restaurants, models.RawRestaurant{
			ID:       models.Slugify(name),
			Name:     name,
			Phone:    phone(block),
			ImageURL: imageURL(block, base),
			Sections: []models.RawSection{{Title: DefaultSectionTitle, Items: items}},
		})
	})

	return restaurants
}

func phone(block *goquery.Selection) string {
	inner, err := block.Html()
	if err != nil {
		return ""
	}
	return rePhone.FindString(inner)
}

func menuItems(block *goquery.Selection) []models.RawItem {
	var items []models.RawItem
	block.FindMatcher(itemMatcher).Each(func(_ int, el *goquery.Selection) {
		if item, ok := parseItem(strings.TrimSpace(el.Text())); ok {
			items = append(items, item)
		}
	})
	return items
}

// parseItem reads one priced line such as "Soup    Tomato soup 7.50€".
// Runs of two or more spaces (or a newline) separate the category from
// the description.
func parseItem(text string) (models.RawItem, bool) {
	price := rePrice.FindString(text)
	if price == "" {
		return models.RawItem{}, false
	}

	itemText := strings.TrimSpace(strings.Replace(text, price, "", 1))
	if n := utf8.RuneCountInString(itemText); n < minItemTextLen || n >= maxItemTextLen {
		return models.RawItem{}, false
	}

	parts := reItemSplit.Split(itemText, -1)
	category := parts[0]
	if utf8.RuneCountInString(category) < minCategoryLen {
		return models.RawItem{}, false
	}

	return models.RawItem{
		Category:    category,
		Name:        category,
		Description: strings.TrimSpace(strings.Join(parts[1:], " ")),
		Price:       price,
	}, true
}

// imageURL returns the first non-data image in the block as an absolute URL.
func imageURL(block *goquery.Selection, base *url.URL) string {
	var found string
	block.FindMatcher(imageMatcher).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			return true
		}
		resolved, err := url.Parse(src)
		if err != nil {
			return true
		}
		if base != nil {
			resolved = base.ResolveReference(resolved)
		}
		if resolved.Scheme == "data" {
			return true
		}
		found = resolved.String()
		return false
	})
	return found
}
