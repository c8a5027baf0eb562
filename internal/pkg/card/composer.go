package card

import "bitbucket.org/airenas/callnotes/internal/pkg/api"

const (
	cardType    = "AdaptiveCard"
	cardVersion = "1.4"
	cardSchema  = "http://adaptivecards.io/schemas/adaptive-card.json"
	textBlock   = "TextBlock"
)

//Compose builds the call notes card
func Compose(candidate, callDate, notes, fileName string) *api.Card {
	return &api.Card{
		Type:    cardType,
		Version: cardVersion,
		Schema:  cardSchema,
		Body: []api.TextBlock{
			{Type: textBlock, Text: "Call Notes: " + candidate, Weight: "Bolder", Size: "Large"},
			{Type: textBlock, Text: "Date: " + callDate, Size: "Medium", Spacing: "Small"},
			{Type: textBlock, Text: notes, Wrap: true, Spacing: "Medium"},
			{Type: textBlock, Text: "Source: " + fileName, Size: "Small", IsSubtle: true, Spacing: "Large"},
		},
	}
}
