package inference

import (
	"strings"

	"github.com/aryan-manish-vaidya/Aurora/internal/transcript"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// buildContents maps transcript turns onto provider roles.
//
// Pending turns are skipped, leading model turns are dropped so the request opens with the
// user, and maxTurns > 0 keeps only the most recent turns (re-trimmed to open with the user).
func buildContents(history []transcript.Turn, maxTurns int) []content {
	contents := make([]content, 0, len(history))
	for _, turn := range history {
		if turn.Pending {
			continue
		}
		role := roleUser
		if turn.Speaker == transcript.SpeakerAssistant {
			role = roleModel
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: turn.Text}}})
	}

	contents = dropLeadingModel(contents)
	if maxTurns > 0 && len(contents) > maxTurns {
		contents = dropLeadingModel(contents[len(contents)-maxTurns:])
	}
	return contents
}

func dropLeadingModel(contents []content) []content {
	for len(contents) > 0 && contents[0].Role == roleModel {
		contents = contents[1:]
	}
	return contents
}

func buildRequest(history []transcript.Turn, persona string, maxTurns int) generateRequest {
	req := generateRequest{Contents: buildContents(history, maxTurns)}
	if persona = strings.TrimSpace(persona); persona != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: persona}}}
	}
	return req
}

// replyText extracts candidates[0].content.parts[0].text.
func (r generateResponse) replyText() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	text := strings.TrimSpace(r.Candidates[0].Content.Parts[0].Text)
	return text, text != ""
}
