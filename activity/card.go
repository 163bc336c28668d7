package activity

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// CardSummary flattens an adaptive card into plain text lines for display in
// a terminal: text blocks, facts, input labels and action titles, in document
// order. Non-card attachments summarise to their name or content type.
func CardSummary(att Attachment) []string {
	if att.ContentType != AdaptiveCardContentType {
		label := att.Name
		if label == "" {
			label = att.ContentType
		}
		if label == "" {
			return nil
		}
		return []string{fmt.Sprintf("[attachment: %s]", label)}
	}
	if len(att.Content) == 0 || !gjson.ValidBytes(att.Content) {
		return nil
	}

	card := gjson.ParseBytes(att.Content)
	var lines []string
	summarizeElements(card.Get("body"), &lines)

	var actions []string
	eachArray(card.Get("actions"), func(_, v gjson.Result) bool {
		if title := stringField(v, "title"); title != "" {
			actions = append(actions, "["+title+"]")
		}
		return true
	})
	if len(actions) > 0 {
		lines = append(lines, strings.Join(actions, " "))
	}
	return lines
}

func summarizeElements(elements gjson.Result, lines *[]string) {
	eachArray(elements, func(_, el gjson.Result) bool {
		switch kind := stringField(el, "type"); {
		case kind == "TextBlock":
			if text := stringField(el, "text"); text != "" {
				*lines = append(*lines, text)
			}
		case kind == "FactSet":
			eachArray(el.Get("facts"), func(_, f gjson.Result) bool {
				*lines = append(*lines, fmt.Sprintf("%s: %s", stringField(f, "title"), stringField(f, "value")))
				return true
			})
		case kind == "ColumnSet":
			var cols []string
			eachArray(el.Get("columns"), func(_, col gjson.Result) bool {
				var inner []string
				summarizeElements(col.Get("items"), &inner)
				if len(inner) > 0 {
					cols = append(cols, strings.Join(inner, " "))
				}
				return true
			})
			if len(cols) > 0 {
				*lines = append(*lines, strings.Join(cols, " | "))
			}
		case kind == "Container":
			summarizeElements(el.Get("items"), lines)
		case strings.HasPrefix(kind, "Input."):
			label := stringField(el, "label")
			if label == "" {
				label = stringField(el, "placeholder")
			}
			if label == "" {
				label = stringField(el, "id")
			}
			*lines = append(*lines, fmt.Sprintf("%s: ____", label))
		case kind == "Image":
			*lines = append(*lines, "[image]")
		}
		return true
	})
}
