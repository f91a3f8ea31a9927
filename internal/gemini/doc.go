// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini implements the client for the AI gateway used by genstudio.
//
// The gateway exposes OpenAI-compatible endpoints (chat completions, image
// generation) alongside Gemini-style endpoints (generateContent for image
// editing and TTS, predictLongRunning plus an operations resource for video).
// This package covers all of them behind one Client with a shared HTTP
// transport, request pacing, and a uniform error taxonomy:
//
//   - *APIError for any non-2xx response (transport failure)
//   - *ShapeError for a 2xx response missing an expected field, carrying
//     the raw body for diagnosis
//   - sentinel errors (ErrNoAPIKey, ErrAuthFailed, ErrPollTimeout) for
//     conditions callers branch on
package gemini
