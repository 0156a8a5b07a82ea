/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package snapshot

const dialect = "postgres"

const (
	tblSession   = "aasfetch_session"
	tblEntity    = "aasfetch_entity"
	tblThumbnail = "aasfetch_thumbnail"

	colSessionID   = "session_id"
	colLocation    = "location"
	colCursor      = "cursor"
	colBaseType    = "base_type"
	colOperation   = "operation"
	colRecord      = "record"
	colSavedAt     = "saved_at"
	colKind        = "kind"
	colPosition    = "position"
	colEntityID    = "entity_id"
	colPayload     = "payload"
	colSide        = "side"
	colTaint       = "taint"
	colAASID       = "aas_id"
	colContentType = "content_type"
	colData        = "data"
)

// Schema creates the snapshot tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS aasfetch_session (
	session_id TEXT PRIMARY KEY,
	location   TEXT NOT NULL,
	cursor     TEXT NOT NULL DEFAULT '',
	base_type  TEXT NOT NULL,
	operation  TEXT NOT NULL,
	record     JSONB NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS aasfetch_entity (
	session_id TEXT NOT NULL REFERENCES aasfetch_session(session_id) ON DELETE CASCADE,
	kind       TEXT NOT NULL,
	position   INTEGER NOT NULL,
	entity_id  TEXT NOT NULL,
	payload    JSONB,
	side       JSONB,
	taint      SMALLINT NOT NULL,
	PRIMARY KEY (session_id, kind, position)
);

CREATE TABLE IF NOT EXISTS aasfetch_thumbnail (
	session_id   TEXT NOT NULL REFERENCES aasfetch_session(session_id) ON DELETE CASCADE,
	aas_id       TEXT NOT NULL,
	content_type TEXT NOT NULL,
	data         BYTEA NOT NULL,
	PRIMARY KEY (session_id, aas_id)
);
`
