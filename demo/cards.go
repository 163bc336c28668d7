package demo

import (
	"embed"
	"encoding/json"
	"fmt"

	"botchat/activity"
)

//go:embed cards/*.json
var cardFiles embed.FS

const (
	CardTimeOff  = "timeoff"
	CardFeedback = "feedback"
	CardWeather  = "weather"
	CardProduct  = "product"
)

// CardNames lists the bundled sample cards.
func CardNames() []string {
	return []string{CardTimeOff, CardFeedback, CardWeather, CardProduct}
}

// Card returns a bundled adaptive card as an attachment.
func Card(name string) (activity.Attachment, error) {
	data, err := cardFiles.ReadFile("cards/" + name + ".json")
	if err != nil {
		return activity.Attachment{}, fmt.Errorf("unknown card %q", name)
	}
	if !json.Valid(data) {
		return activity.Attachment{}, fmt.Errorf("card %q is not valid JSON", name)
	}
	return activity.Attachment{
		ContentType: activity.AdaptiveCardContentType,
		Content:     json.RawMessage(data),
	}, nil
}

func mustCard(name string) activity.Attachment {
	att, err := Card(name)
	if err != nil {
		panic(err)
	}
	return att
}

// QuickReplies are the suggested actions offered after the greeting.
func QuickReplies() *activity.SuggestedActions {
	return &activity.SuggestedActions{
		Actions: []activity.CardAction{
			{Type: "imBack", Title: "Request time off", Value: "I want to request time off"},
			{Type: "imBack", Title: "Check balance", Value: "What is my leave balance?"},
			{Type: "imBack", Title: "View calendar", Value: "Show my calendar"},
		},
	}
}
