// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Speak synthesizes speech for text with the named prebuilt voice and
// returns the decoded audio bytes. The voice name is sent verbatim; an
// unknown voice is the gateway's call to reject, not ours. A 2xx
// response without the nested audio payload is a *ShapeError.
func (c *Client) Speak(ctx context.Context, text, voice string) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrNoAPIKey
	}

	req := generateRequest{
		Contents: []generateContent{{
			Parts: []requestPart{{Text: text}},
		}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
	}

	url := fmt.Sprintf("%s/gemini/v1beta/models/%s:generateContent", c.baseURL, c.speechModel)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	raw, err := c.postRaw(ctx, url, c.googHeaders(), body)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	b64 := resp.firstInlineData()
	if b64 == "" {
		return nil, &ShapeError{Field: "candidates[0].content.parts[0].inlineData.data", Body: string(raw)}
	}

	audio, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}

	c.logger.Info().Str("voice", voice).Int("bytes", len(audio)).Msg("speech synthesized")
	return audio, nil
}
