// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the on-disk working directory for one genstudio
// session.
//
// A session is created after the API key validates and lives for the
// process lifetime. Its layout:
//
//	data/session_YYYYMMDD_HHMMSS/
//	    images/            generated and edited images + sidecars
//	    videos/            downloaded videos + sidecars
//	    audio/             synthesized audio + sidecars
//	    session_info.json  id, creation time, api_calls counter
//	    session.log        append-only event log
//	    chat_history.json  full transcript, rewritten per exchange
//
// Every artifact has a sibling <filename>.json sidecar describing its
// provenance. All JSON records are written atomically.
package session
