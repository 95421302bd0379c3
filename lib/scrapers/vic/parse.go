package vic

import (
	"context"
	"regexp"
	"strings"
	"vicharvest/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("vicharvest.lib.scrapers.vic")

const (
	nameSelector        = "div.idea_name"
	nameSpanSelector    = "div.idea_name > span.vich1"
	postedBySelector    = "div.idea_by"
	descriptionSelector = "div#description"
	shortSelector       = "span.label.label-short"
	winnerSelector      = "span.label.label-success"
)

// minDescriptionLength is the length under which a split description is
// considered implausible and the heading layout is tried.
const minDescriptionLength = 128

// headingSimilarity is the minimum Jaro-Winkler similarity for a section
// heading to be taken as the "Description" or "Catalysts" heading.
const headingSimilarity = 0.85

var (
	legacyNameRegex = regexp.MustCompile(`^(.+?)\s*\(([A-Za-z0-9.\-: ]+)\)\s*$`)
	dateTextRegex   = regexp.MustCompile(`[A-Z][a-z]+ \d{1,2}, \d{4} - \d{1,2}:\d{2}\s?[AP]M\s*EST`)
)

// ParseIdea extracts an idea from its detail page. Missing elements leave
// the corresponding fields empty, it never fails.
func ParseIdea(ctx context.Context, doc *goquery.Document, link string) ScrapedIdea {
	_, span := tracer.Start(ctx, "ParseIdea")
	defer span.End()

	idea := ScrapedIdea{Link: link}

	idea.CompanyName, idea.Ticker = parseName(doc)
	idea.Username, idea.UserLink, idea.Date = parsePostedBy(doc)
	idea.Description, idea.Catalysts = parseDescription(doc.Find(descriptionSelector).First())

	idea.IsShort = doc.Find(shortSelector).Length() > 0
	idea.IsContestWinner = doc.Find(winnerSelector).Length() > 0

	span.SetAttributes(
		attribute.String("link", link),
		attribute.String("ticker", idea.Ticker),
		attribute.Bool("is_short", idea.IsShort),
		attribute.Bool("is_contest_winner", idea.IsContestWinner),
	)

	return idea
}

func parseName(doc *goquery.Document) (name, ticker string) {
	vich1 := doc.Find(nameSpanSelector).First()
	if vich1.Length() > 0 {
		name = htmlutil.OwnText(vich1)
		ticker = strings.TrimSpace(vich1.ChildrenFiltered("span").First().Text())
		return name, ticker
	}

	// older pages have "Company Name (TICK)" directly in the container
	text := htmlutil.CleanText(doc.Find(nameSelector).First().Text())
	match := legacyNameRegex.FindStringSubmatch(text)
	if match == nil {
		return text, ""
	}
	return strings.TrimSpace(match[1]), strings.TrimSpace(match[2])
}

func parsePostedBy(doc *goquery.Document) (username, userLink, date string) {
	container := doc.Find(postedBySelector).First()

	author := container.ChildrenFiltered("a").First()
	username = strings.TrimSpace(author.Text())
	userLink = strings.TrimSpace(author.AttrOr("href", ""))

	date = htmlutil.OwnText(container.ChildrenFiltered("div").First())
	if date == "" {
		date = dateTextRegex.FindString(htmlutil.CleanText(container.Text()))
	}
	return username, userLink, date
}

func parseDescription(container *goquery.Selection) (description, catalysts string) {
	blob := strings.Join(htmlutil.TextNodes(container), "\n")
	description, catalysts = SplitLastOccurrence(blob, CatalystMarker)
	if len(description) >= minDescriptionLength {
		return description, catalysts
	}

	sections := headingSections(container)
	if len(sections) == 0 {
		return description, catalysts
	}
	headedDescription, okDescription := matchSection(sections, "Description")
	headedCatalysts, okCatalysts := matchSection(sections, "Catalysts")
	if okDescription {
		description = headedDescription
	}
	if okCatalysts {
		catalysts = headedCatalysts
	}
	return description, catalysts
}

type section struct {
	heading string
	text    string
}

// headingSections splits the container into the text that follows each h4
// heading, up to the next one.
func headingSections(container *goquery.Selection) []section {
	var sections []section
	container.Find("h4").Each(func(_ int, heading *goquery.Selection) {
		var parts []string
		for n := heading.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
			if n.Type == html.ElementNode && n.Data == "h4" {
				break
			}
			parts = append(parts, htmlutil.TextNodes(goquery.NewDocumentFromNode(n).Selection)...)
		}
		sections = append(sections, section{
			heading: htmlutil.CleanText(heading.Text()),
			text:    strings.TrimSpace(strings.Join(parts, "\n")),
		})
	})
	return sections
}

func matchSection(sections []section, name string) (string, bool) {
	best := -1
	bestScore := 0.0
	for i, s := range sections {
		score := matchr.JaroWinkler(strings.ToLower(s.heading), strings.ToLower(name), false)
		if score >= headingSimilarity && score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 {
		return "", false
	}
	return sections[best].text, true
}
