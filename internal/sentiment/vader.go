package sentiment

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
	"mvdan.cc/xurls/v2"
)

const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"

	positiveThreshold = 0.20
	negativeThreshold = -0.20
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = xurls.Relaxed()
)

type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

// ConvertMarkdownToText renders markdown and keeps only the text nodes.
func ConvertMarkdownToText(input string) string {
	input = RemoveLinks(input)
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(output))
	if err != nil {
		return strings.Join(strings.Fields(input), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Analyze returns the VADER compound score and its label.
func (a *Analyzer) Analyze(text string) (float64, string) {
	plainText := ConvertMarkdownToText(text)
	if plainText == "" {
		return 0, LabelNeutral
	}

	score := a.vader.PolarityScores(plainText).Compound

	return score, Label(score)
}

func Label(score float64) string {
	switch {
	case score >= positiveThreshold:
		return LabelPositive
	case score <= negativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}
