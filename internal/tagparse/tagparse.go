// Package tagparse extracts deadline, priority and category tags from free
// text such as "buy milk #life #tomorrow".
package tagparse

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Tiliavir/trivial-focus-tracker/internal/model"
)

// Result is the outcome of Parse. Text has every recognised tag removed.
type Result struct {
	Deadline model.Date
	Priority model.Priority
	Category model.Category
	Text     string
}

var (
	absoluteDateRe = regexp.MustCompile(`^#(\d{4})(?:[-/](\d{1,2})[-/](\d{1,2})|年(\d{1,2})月(\d{1,2})日)$`)
	daysLaterRe    = regexp.MustCompile(`^#(\d{1,4})(?:天后)?$`)
)

var relativeDays = map[string]int{
	"#今天":       0,
	"#today":    0,
	"#明天":       1,
	"#tomorrow": 1,
	"#后天":       2,
	"#两天后":      2,
	"#大后天":      3,
	"#三天后":      3,
}

var priorityTags = map[string]model.Priority{
	"#紧急":     model.PriorityUrgent,
	"#urgent": model.PriorityUrgent,
	"#重要":     model.PriorityHigh,
	"#高":      model.PriorityHigh,
	"#high":   model.PriorityHigh,
	"#中":      model.PriorityMedium,
	"#普通":     model.PriorityMedium,
	"#medium": model.PriorityMedium,
	"#低":      model.PriorityLow,
	"#不急":     model.PriorityLow,
	"#low":    model.PriorityLow,
}

var categoryTags = map[string]model.Category{
	"#工作":    model.CategoryWork,
	"#work":  model.CategoryWork,
	"#生活":    model.CategoryLife,
	"#life":  model.CategoryLife,
	"#学习":    model.CategoryStudy,
	"#study": model.CategoryStudy,
}

// Parse reads tags from raw relative to today. A tag starts at "#" and
// runs up to the next whitespace, "#", punctuation mark other than "-" or
// "/", or the end of the text, so "买菜#生活#明天" carries two tags. A tag
// must match its vocabulary entry exactly: "#worker" is not "#work".
//
// An absolute date beats a relative one and only one date tag is consumed;
// for priority and category the first tag wins but every recognised one is
// removed. Unknown tags stay in the text. The remaining text keeps its
// inner spacing and is trimmed at both ends.
func Parse(raw string, today model.Date) Result {
	if today.IsZero() {
		today = model.Today()
	}
	res := Result{Priority: model.PriorityMedium, Category: model.CategoryDefault}
	tags := scan(raw)

	dateAt := -1
	for i, tg := range tags {
		if d, ok := absoluteDate(tg.text); ok {
			res.Deadline, dateAt = d, i
			break
		}
	}
	if dateAt < 0 {
		for i, tg := range tags {
			if n, ok := relativeDate(tg.text); ok {
				res.Deadline, dateAt = today.AddDays(n), i
				break
			}
		}
	}

	var havePriority, haveCategory bool
	var b strings.Builder
	last := 0
	for i, tg := range tags {
		drop := i == dateAt
		if p, ok := priorityTags[strings.ToLower(tg.text)]; ok {
			if !havePriority {
				res.Priority, havePriority = p, true
			}
			drop = true
		}
		if c, ok := categoryTags[strings.ToLower(tg.text)]; ok {
			if !haveCategory {
				res.Category, haveCategory = c, true
			}
			drop = true
		}
		if drop {
			b.WriteString(raw[last:tg.start])
			last = tg.start + len(tg.text)
		}
	}
	b.WriteString(raw[last:])
	res.Text = strings.TrimSpace(b.String())
	return res
}

// tag is a candidate "#..." span of the input.
type tag struct {
	start int
	text  string
}

func scan(raw string) []tag {
	var tags []tag
	for i := 0; i < len(raw); {
		if raw[i] != '#' {
			i++
			continue
		}
		end := i + 1
		for end < len(raw) {
			r, size := utf8.DecodeRuneInString(raw[end:])
			if endsTag(r) {
				break
			}
			end += size
		}
		if end > i+1 {
			tags = append(tags, tag{start: i, text: raw[i:end]})
		}
		i = end
	}
	return tags
}

func endsTag(r rune) bool {
	switch {
	case r == '#':
		return true
	case r == '-' || r == '/':
		return false
	default:
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}
}

func absoluteDate(tok string) (model.Date, bool) {
	m := absoluteDateRe.FindStringSubmatch(tok)
	if m == nil {
		return model.Date{}, false
	}
	month, day := m[2], m[3]
	if month == "" {
		month, day = m[4], m[5]
	}
	return model.ParseDate(m[1] + "-" + month + "-" + day)
}

func relativeDate(tok string) (int, bool) {
	if n, ok := relativeDays[strings.ToLower(tok)]; ok {
		return n, true
	}
	m := daysLaterRe.FindStringSubmatch(tok)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
