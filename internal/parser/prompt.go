package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"shopping-agent/internal/domain"
)

// modelCommand is the only JSON shape accepted from the completion model.
type modelCommand struct {
	Action   string      `json:"action"`
	Items    []modelItem `json:"items"`
	Response string      `json:"response"`
}

type modelItem struct {
	Name     string  `json:"name"`
	Quantity *int    `json:"quantity"`
	Category *string `json:"category"`
}

func buildPromptMessages(text string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: "system", Content: buildPolicyPrompt()},
		{Role: "user", Content: text},
	}
}

func buildPolicyPrompt() string {
	return strings.Join([]string{
		"Role:",
		"You are a shopping list assistant that interprets one user command at a time.",
		"",
		"Task:",
		"Decide whether the command adds items, removes items, searches the list, or is not a list command.",
		"Extract every item mentioned with its quantity and category.",
		"",
		"Categories:",
		categoryList(),
		"",
		"Behavior Rules:",
		behaviorRules(),
		"",
		"Output Contract:",
		outputContract(),
	}, "\n")
}

func categoryList() string {
	names := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func behaviorRules() string {
	return strings.Join([]string{
		"1) Use action \"add\" for buying or needing items and \"remove\" for deleting them.",
		"2) Use action \"search\" when the user asks whether something is on the list.",
		"3) Use action \"unknown\" with an empty items array for anything else.",
		"4) Item names are lower-case and singular or plural exactly as spoken.",
		"5) Quantity is a positive whole number; use 1 when none is given.",
		"6) Category must be one of the listed categories; use \"other\" when unsure.",
	}, "\n")
}

func outputContract() string {
	return "Return JSON only with keys action (string), items (array of objects with keys name, quantity, category) " +
		"and response (string, a short friendly confirmation). Do not add any other keys."
}

// decodeModelCommand strictly decodes and validates raw model output.
func decodeModelCommand(raw string) (domain.ParsedCommand, error) {
	var out modelCommand
	dec := json.NewDecoder(bytes.NewBufferString(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return domain.ParsedCommand{}, fmt.Errorf("decode command: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return domain.ParsedCommand{}, errors.New("decode command: multiple JSON values")
		}
		return domain.ParsedCommand{}, fmt.Errorf("decode command trailing data: %w", err)
	}

	action := domain.Action(out.Action)
	if !action.Valid() {
		return domain.ParsedCommand{}, fmt.Errorf("unknown action %q", out.Action)
	}

	cmd := domain.ParsedCommand{
		Action:   action,
		Items:    make([]domain.ParsedItem, 0, len(out.Items)),
		Response: out.Response,
	}
	for i, it := range out.Items {
		item := domain.ParsedItem{Name: strings.TrimSpace(it.Name)}
		if it.Quantity != nil {
			if *it.Quantity < 0 {
				return domain.ParsedCommand{}, fmt.Errorf("item %d: negative quantity %d", i, *it.Quantity)
			}
			item.Quantity = *it.Quantity
		}
		if it.Category != nil && strings.TrimSpace(*it.Category) != "" {
			category := domain.Category(strings.ToLower(strings.TrimSpace(*it.Category)))
			if !category.Valid() {
				return domain.ParsedCommand{}, fmt.Errorf("item %d: unknown category %q", i, *it.Category)
			}
			item.Category = category
		}
		cmd.Items = append(cmd.Items, item)
	}
	return cmd, nil
}
