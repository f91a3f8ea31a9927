// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

// Wire types for the Gemini-style generateContent endpoints, shared by
// the image-edit and TTS adapters. The gateway has emitted inline data
// under both "inline_data" and "inlineData" across versions; responses
// are parsed accepting either spelling.

// generateRequest is a generateContent request body.
type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

// generateContent is one content block of parts.
type generateContent struct {
	Parts []requestPart `json:"parts"`
}

// requestPart is a single request part: text or inline binary data.
type requestPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

// inlineData carries base64 payloads with their MIME type.
type inlineData struct {
	MIMEType string `json:"mime_type,omitempty"`
	Data     string `json:"data"`
}

// generationConfig holds the request-level generation options.
type generationConfig struct {
	ImageConfig        *imageConfig  `json:"imageConfig,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

// imageConfig selects the output aspect ratio.
type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
}

// speechConfig selects the TTS voice.
type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// generateResponse is a generateContent response body.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []responsePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// responsePart accepts both historical inline-data spellings.
type responsePart struct {
	Text        string      `json:"text,omitempty"`
	InlineSnake *inlineData `json:"inline_data,omitempty"`
	InlineCamel *inlineData `json:"inlineData,omitempty"`
}

// inlineBase64 returns the part's inline payload under either spelling.
func (p responsePart) inlineBase64() string {
	if p.InlineSnake != nil && p.InlineSnake.Data != "" {
		return p.InlineSnake.Data
	}
	if p.InlineCamel != nil && p.InlineCamel.Data != "" {
		return p.InlineCamel.Data
	}
	return ""
}

// firstInlineData scans all candidate parts for an inline payload.
func (r *generateResponse) firstInlineData() string {
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if data := part.inlineBase64(); data != "" {
				return data
			}
		}
	}
	return ""
}
