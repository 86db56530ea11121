package processing

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]+`)
	urlRegex    = regexp.MustCompile(`https?://[^\s]+`)
)

const blockElements = "br,p,div,li,tr,td,h1,h2,h3,h4,h5,h6,figcaption"

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "in": {}, "for": {}, "of": {}, "and": {},
	"on": {}, "at": {}, "with": {}, "from": {}, "after": {}, "into": {}, "will": {},
	"का": {}, "की": {}, "के": {}, "में": {}, "है": {}, "और": {}, "से": {}, "को": {},
	"पर": {}, "ने": {}, "एक": {}, "यह": {}, "भी": {}, "लिए": {}, "था": {}, "हैं": {},
}

// PlainText returns the visible text of an HTML fragment with whitespace squeezed.
func PlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return squeeze(html.UnescapeString(fragment))
	}
	doc.Find("script,style").Remove()
	doc.Find(blockElements).AfterHtml(" ")
	return squeeze(doc.Text())
}

// FirstImage returns the src of the first <img> in an HTML fragment.
func FirstImage(fragment string) string {
	if !strings.Contains(fragment, "<img") && !strings.Contains(fragment, "<IMG") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

// Excerpt returns the first maxWords words of the fragment's text, with an
// ellipsis when it was cut.
func Excerpt(fragment string, maxWords int) string {
	words := strings.Fields(urlRegex.ReplaceAllString(PlainText(fragment), " "))
	if len(words) == 0 {
		return ""
	}
	if maxWords > 0 && len(words) > maxWords {
		return strings.Join(words[:maxWords], " ") + "..."
	}
	return strings.Join(words, " ")
}

// ExtractKeywords returns the most frequent non-stopword tokens of text.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(punctuation.ReplaceAllString(urlRegex.ReplaceAllString(text, " "), " "))
	if strings.TrimSpace(clean) == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, token := range strings.Fields(clean) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
		})
		if len([]rune(token)) < minLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		freq[token]++
	}

	if len(freq) == 0 {
		return nil
	}

	type kv struct {
		word  string
		count int
	}

	pairs := make([]kv, 0, len(freq))
	for word, count := range freq {
		pairs = append(pairs, kv{word: word, count: count})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].count > pairs[j].count
	})

	n := limit
	if n <= 0 || n > len(pairs) {
		n = len(pairs)
	}

	keywords := make([]string, 0, n)
	for _, p := range pairs[:n] {
		keywords = append(keywords, p.word)
	}
	return keywords
}

func squeeze(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
