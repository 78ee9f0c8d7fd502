package parser

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/IshaanNene/dhscrape/internal/types"
)

// initialRegex matches the " Z." form running text uses for the subject.
var initialRegex = regexp.MustCompile(` ([A-Z])\.\W`)

type initialCount struct {
	initial string
	count   int
}

// TextInitials counts the candidate initials of text, most frequent first.
// Ties keep the order of first occurrence.
func TextInitials(text string) []string {
	counts := map[string]*initialCount{}
	var order []*initialCount
	for _, m := range initialRegex.FindAllStringSubmatch(text, -1) {
		c, ok := counts[m[1]]
		if !ok {
			c = &initialCount{initial: m[1]}
			counts[m[1]] = c
			order = append(order, c)
		}
		c.count++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})
	out := make([]string, len(order))
	for i, c := range order {
		out[i] = c.initial
	}
	return out
}

// TitleInitials returns the first letter of every capitalized title word,
// in title order.
func TitleInitials(title string) []string {
	var out []string
	for _, w := range strings.Split(title, " ") {
		r, _ := utf8.DecodeRuneInString(w)
		if r != utf8.RuneError && unicode.IsUpper(r) {
			out = append(out, string(r))
		}
	}
	return out
}

// IdentifyingInitial guesses the letter the text uses to abbreviate the
// article subject. An empty result with a nil error means no initial.
//
// With two candidates that both start a title word, the one whose word
// comes last in the title wins; this follows the given name / family name
// order of person titles and is unverified for other articles.
func IdentifyingInitial(text, title string) (string, error) {
	candidates := TextInitials(text)
	titleInitials := TitleInitials(title)
	inTitle := func(s string) bool { return contains(titleInitials, s) }

	switch len(candidates) {
	case 0:
		return "", nil
	case 1:
		if inTitle(candidates[0]) {
			return candidates[0], nil
		}
		return "", nil
	}

	first, second := candidates[0], candidates[1]
	firstIn, secondIn := inTitle(first), inTitle(second)
	switch {
	case firstIn && !secondIn:
		return first, nil
	case !firstIn && secondIn:
		return second, nil
	case !firstIn && !secondIn:
		return "", nil
	case firstIn && secondIn:
		last := ""
		for _, i := range titleInitials {
			if i == first || i == second {
				last = i
			}
		}
		if last != "" {
			return last, nil
		}
	}
	return "", &types.InitialError{Title: title, Candidates: candidates}
}
