// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks runs long-lived generation jobs off the UI goroutine.
//
// Video generation is the long pole: submit, poll a remote operation
// until it resolves, then download the result. A Runner executes that
// pipeline in the background, emitting Events the UI can render, and
// enforces a single in-flight job so concurrent submissions cannot
// interleave their polling loops.
package tasks
