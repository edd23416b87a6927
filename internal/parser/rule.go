package parser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"shopping-agent/internal/categorizer"
	"shopping-agent/internal/domain"
)

var (
	addTriggers    = map[string]struct{}{"add": {}, "need": {}, "buy": {}, "want": {}}
	removeTriggers = map[string]struct{}{"remove": {}, "delete": {}}
)

// RuleParser recognises trigger words and splits the remaining text into
// item phrases. It never calls out and never fails.
type RuleParser struct {
	separatorPattern *regexp.Regexp
	quantityPattern  *regexp.Regexp
	categorize       func(name string) domain.Category
}

func NewRuleParser() *RuleParser {
	return &RuleParser{
		separatorPattern: regexp.MustCompile(`\s+and\s+|\s*,\s*|\s+with\s+`),
		quantityPattern:  regexp.MustCompile(`^(\d+)\s+(.+)$`),
		categorize:       categorizer.Categorize,
	}
}

func (p *RuleParser) Parse(_ context.Context, text string) (domain.ParsedCommand, error) {
	tokens := strings.Fields(strings.ToLower(text))

	action := domain.ActionUnknown
	anchor := -1
	if i := firstTrigger(tokens, addTriggers); i >= 0 {
		action, anchor = domain.ActionAdd, i
	} else if i := firstTrigger(tokens, removeTriggers); i >= 0 {
		action, anchor = domain.ActionRemove, i
	}

	cmd := domain.ParsedCommand{Action: action, Items: []domain.ParsedItem{}}
	if anchor >= 0 {
		span := strings.Join(tokens[anchor+1:], " ")
		for _, fragment := range p.separatorPattern.Split(span, -1) {
			it, ok := p.parseFragment(fragment, action == domain.ActionAdd)
			if ok {
				cmd.Items = append(cmd.Items, it)
			}
		}
	}
	cmd.Response = responseText(cmd, text)
	return cmd, nil
}

func (p *RuleParser) parseFragment(fragment string, withQuantity bool) (domain.ParsedItem, bool) {
	raw := strings.TrimSpace(fragment)
	if raw == "" {
		return domain.ParsedItem{}, false
	}
	if !withQuantity {
		name := cleanName(raw)
		return domain.ParsedItem{Name: name}, name != ""
	}

	qty := 1
	if m := p.quantityPattern.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			qty = max(n, 1)
			raw = m[2]
		}
	}
	name := cleanName(raw)
	if name == "" {
		return domain.ParsedItem{}, false
	}
	return domain.ParsedItem{Name: name, Quantity: qty, Category: p.categorize(name)}, true
}

func firstTrigger(tokens []string, triggers map[string]struct{}) int {
	for i, tok := range tokens {
		if _, ok := triggers[tok]; ok {
			return i
		}
	}
	return -1
}

// cleanName keeps only letters and whitespace.
func cleanName(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s))
}

func responseText(cmd domain.ParsedCommand, original string) string {
	if len(cmd.Items) == 0 {
		return processedText(original)
	}
	parts := make([]string, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		if cmd.Action == domain.ActionAdd && it.Quantity != 1 {
			parts = append(parts, fmt.Sprintf("%d %s", it.Quantity, it.Name))
			continue
		}
		parts = append(parts, it.Name)
	}
	switch cmd.Action {
	case domain.ActionAdd:
		return "Added " + strings.Join(parts, ", ") + " to your shopping list"
	case domain.ActionRemove:
		return "Removed " + strings.Join(parts, ", ") + " from your shopping list"
	}
	return processedText(original)
}

func processedText(original string) string {
	return `Processed: "` + original + `"`
}
