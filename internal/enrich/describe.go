package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/starzmeet/listing-agent/internal/llmjson"
	"github.com/starzmeet/listing-agent/internal/model"
	"github.com/starzmeet/listing-agent/pkg/anthropic"
)

const extractSystemPrompt = "You extract structured, unique business listing metadata from websites."

const extractPromptTemplate = `You are a smart business listing assistant.
From the web page content below, extract and return unique metadata for the specific organization.
Ensure the description is tailored to the organization and not generic.
Fields to extract in JSON format:
1. Description:
   - About: A unique summary of what this organization does from aboutus and home page(300-500 words).
   - Services: List of specific services and programs offered (as a list).
   - Contact Info: Include phone, email, and address if found.
2. Tagline: A short, unique slogan or mission phrase.
3. Email: Main contact email address.
4. Category: Type of business (e.g., ABA Therapy, Autism Center).
5. Features: Unique highlights (e.g., in-home service, multilingual staff) as Comma-separated list.
6. Tags: Comma-separated list of keywords (e.g., autism, ABA, therapy).
Be concise, accurate, and use only information from the page. Avoid generic responses.
Return clean JSON only.
Website Content:
%s`

// flexString decodes a JSON value that may arrive as a string or a list of
// strings; lists are comma-joined.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		for i := range list {
			list[i] = strings.TrimSpace(list[i])
		}
		*f = flexString(strings.Join(list, ", "))
		return nil
	}
	*f = ""
	return nil
}

type llmPayload struct {
	Description json.RawMessage `json:"Description"`
	Tagline     flexString      `json:"Tagline"`
	Email       flexString      `json:"Email"`
	Category    flexString      `json:"Category"`
	Features    flexString      `json:"Features"`
	Tags        flexString      `json:"Tags"`
}

type llmDescription struct {
	About    string   `json:"About"`
	Services []string `json:"Services"`
	Contact  struct {
		Phone   flexString `json:"Phone"`
		Email   flexString `json:"Email"`
		Address flexString `json:"Address"`
	} `json:"Contact Info"`
}

// extractWithLLM fills the textual fields of result from the page text. The
// social and image fields already set on result are left untouched.
func (e *Enricher) extractWithLLM(ctx context.Context, text string, result *model.EnrichmentResult) error {
	raw, err := e.llm.Complete(ctx, anthropic.Request{
		Model:       e.model,
		MaxTokens:   4000,
		System:      extractSystemPrompt,
		Prompt:      fmt.Sprintf(extractPromptTemplate, text),
		Temperature: anthropic.Float(0.6),
	})
	if err != nil {
		return eris.Wrap(err, "enrich: llm request")
	}

	var payload llmPayload
	if err := json.Unmarshal([]byte(llmjson.Clean(raw)), &payload); err != nil {
		return eris.Wrap(err, "enrich: invalid llm json")
	}

	result.Description = renderDescription(payload.Description)
	result.Tagline = string(payload.Tagline)
	result.Email = string(payload.Email)
	result.Category = string(payload.Category)
	result.Features = string(payload.Features)
	result.Tags = string(payload.Tags)
	return nil
}

// renderDescription turns the LLM's Description value into listing HTML. A
// plain string passes through; the structured About/Services/Contact form is
// rendered into the styled layout the CMS expects.
func renderDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var desc llmDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return ""
	}

	var b strings.Builder
	if desc.About != "" {
		b.WriteString(`<h3 style="color: #333; font-size: 18px; margin-bottom: 10px;">About the business</h3>`)
		b.WriteString(fmt.Sprintf(`<p style="color: #555; font-size: 14px; line-height: 1.5;">%s</p>`, desc.About))
	}
	if len(desc.Services) > 0 {
		b.WriteString(`<h3 style="color: #333; font-size: 18px; margin: 15px 0 10px;">Services</h3>`)
		b.WriteString(`<ul style="color: #555; font-size: 14px; line-height: 1.5; padding-left: 20px;">`)
		for _, s := range desc.Services {
			b.WriteString("<li>" + s + "</li>")
		}
		b.WriteString("</ul>")
	}
	phone, email, address := string(desc.Contact.Phone), string(desc.Contact.Email), string(desc.Contact.Address)
	if phone != "" || email != "" || address != "" {
		b.WriteString(`<h3 style="color: #333; font-size: 18px; margin: 15px 0 10px;">Contact Info</h3>`)
		b.WriteString(`<p style="color: #555; font-size: 14px; line-height: 1.5;">`)
		if phone != "" {
			b.WriteString("<strong>Phone:</strong> " + phone + "<br>")
		}
		if email != "" {
			b.WriteString("<strong>Email:</strong> " + email + "<br>")
		}
		if address != "" {
			b.WriteString("<strong>Address:</strong> " + address)
		}
		b.WriteString("</p>")
	}
	if b.Len() == 0 {
		return ""
	}
	return `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 10px; background-color: #dbf0f5;">` + b.String() + "</div>"
}
