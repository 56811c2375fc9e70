package push

import (
	"fmt"
	"strings"

	"github.com/gist4u/notifications/common"
	"github.com/gist4u/notifications/model"
)

// summaryLimit is the maximum number of runes of article summary included in a push
// notification body.
const summaryLimit = 100

// Placeholder copy used when an article has no headline or summary in any language.
const (
	defaultHeadlineEN = "New Story"
	defaultHeadlineFR = "Nouvelle histoire"
	defaultSummaryEN  = "Read the latest story on Gist4U."
	defaultSummaryFR  = "Lisez la dernière histoire sur Gist4U."
)

// BuildArticleMessage builds the push notification for an article in the given
// language, with a deep link back to the article page.
func BuildArticleMessage(article *model.Article, language, baseURL string) *Message {
	title := article.Headline(language)
	body := article.Summary(language)
	if language == model.LanguageFrench {
		if title == "" {
			title = defaultHeadlineFR
		}
		if body == "" {
			body = defaultSummaryFR
		}
	} else {
		if title == "" {
			title = defaultHeadlineEN
		}
		if body == "" {
			body = defaultSummaryEN
		}
	}

	link := fmt.Sprintf("%s/article/%s/", strings.TrimSuffix(baseURL, "/"), article.ID)
	return &Message{
		Title: title,
		Body:  common.TruncateSummary(body, summaryLimit),
		Image: article.ThumbnailURL,
		Link:  link,
		Data: map[string]string{
			"article_id":   article.ID,
			"link":         link,
			"click_action": link,
		},
	}
}
