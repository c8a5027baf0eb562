package consultant

import "bitbucket.org/airenas/callnotes/internal/pkg/api"

//DefaultDesk is the prompts key used when a desk has no template
const DefaultDesk = "Default"

//FallbackPrompt is used when neither desk nor default template exist
const FallbackPrompt = "Please summarize this call transcript:\n\n{{transcript_text}}"

//SelectPrompt returns the desk template, the Default one or the built-in fallback
func SelectPrompt(prompts api.Prompts, desk string) string {
	if p := prompts[desk]; p != "" {
		return p
	}
	if p := prompts[DefaultDesk]; p != "" {
		return p
	}
	return FallbackPrompt
}
