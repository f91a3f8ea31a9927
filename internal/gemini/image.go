// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// editPromptTemplate wraps the user's modification request for the
// image-to-image endpoint.
const editPromptTemplate = "Here is an image. Please generate a new version " +
	"based on this image with the following modification: %s. " +
	"The new image should reflect this change realistically."

// imageGenRequest is the OpenAI-style image generation request body.
type imageGenRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	N           int    `json:"n"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

// imageGenResponse is the image generation response body.
type imageGenResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage produces one image from a text prompt and returns the
// decoded bytes. A 2xx response without image data is a *ShapeError.
func (c *Client) GenerateImage(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrNoAPIKey
	}

	req := imageGenRequest{
		Model:       c.imageModel,
		Prompt:      prompt,
		N:           1,
		AspectRatio: aspectRatio,
	}

	var resp imageGenResponse
	if err := c.postJSON(ctx, c.baseURL+"/images/generations", c.bearerHeaders(), req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		raw, _ := json.Marshal(resp)
		return nil, &ShapeError{Field: "data[0].b64_json", Body: string(raw)}
	}

	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	c.logger.Info().Int("bytes", len(img)).Msg("image generated")
	return img, nil
}

// EditImage produces a new image from a reference image plus a text
// modification, using the generateContent endpoint. The reference bytes
// are embedded base64 with their MIME type. A 2xx response without
// inline image data is a *ShapeError carrying the raw body.
func (c *Client) EditImage(ctx context.Context, prompt string, image []byte, mimeType, aspectRatio string) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrNoAPIKey
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	req := generateRequest{
		Contents: []generateContent{{
			Parts: []requestPart{
				{Text: fmt.Sprintf(editPromptTemplate, prompt)},
				{InlineData: &inlineData{
					MIMEType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			ImageConfig: &imageConfig{AspectRatio: aspectRatio},
		},
	}

	url := fmt.Sprintf("%s/gemini/v1beta/models/%s:generateContent", c.baseURL, c.imageModel)

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
		return nil, &ShapeError{Field: "candidates[0].content.parts[].inline_data.data", Body: string(raw)}
	}

	img, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	c.logger.Info().Int("bytes", len(img)).Msg("image edited")
	return img, nil
}

// ImageMIMEType guesses an image file's MIME type from its extension,
// falling back to image/png.
func ImageMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t := mime.TypeByExtension(ext); t != "" && strings.HasPrefix(t, "image/") {
		return t
	}
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}
