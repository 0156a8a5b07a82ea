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

// Package snapshot persists the Environment of a fetch session in PostgreSQL
// so that it can be resumed without talking to the servers again.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/FriedJannik/aas-go-sdk/jsonization"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/lib/pq"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/fetch"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
)

// Store reads and writes session snapshots.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// NewStore wraps an open database. The schema is expected to exist.
func NewStore(db *sql.DB, log *logger.Logger) *Store {
	if log == nil {
		log = logger.New("SNAPSHOT")
	}
	return &Store{db: db, log: log}
}

// OpenPostgres connects with lib/pq and creates the schema.
func OpenPostgres(ctx context.Context, dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration, log *logger.Logger) (*Store, error) {
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewStore(db, log), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// sideRecord is the stored form of sideinfo.SideInfo.
type sideRecord struct {
	ID              string `json:"id"`
	IDShort         string `json:"idShort,omitempty"`
	Version         string `json:"version,omitempty"`
	Revision        string `json:"revision,omitempty"`
	IsStub          bool   `json:"isStub,omitempty"`
	StubLevel       int    `json:"stubLevel"`
	Queried         string `json:"queried,omitempty"`
	Designated      string `json:"designated,omitempty"`
	ShowCursorAbove bool   `json:"showCursorAbove,omitempty"`
	ShowCursorBelow bool   `json:"showCursorBelow,omitempty"`
}

func toSideRecord(si *sideinfo.SideInfo) sideRecord {
	r := sideRecord{
		ID:              si.ID,
		IDShort:         si.IDShort,
		Version:         si.Version,
		Revision:        si.Revision,
		IsStub:          si.IsStub,
		StubLevel:       int(si.StubLevel),
		ShowCursorAbove: si.ShowCursorAbove,
		ShowCursorBelow: si.ShowCursorBelow,
	}
	if si.QueriedEndpoint != nil {
		r.Queried = si.QueriedEndpoint.String()
	}
	if si.DesignatedEndpoint != nil {
		r.Designated = si.DesignatedEndpoint.String()
	}
	return r
}

func (r sideRecord) toSideInfo() *sideinfo.SideInfo {
	si := &sideinfo.SideInfo{
		ID:              r.ID,
		IDShort:         r.IDShort,
		Version:         r.Version,
		Revision:        r.Revision,
		IsStub:          r.IsStub,
		StubLevel:       sideinfo.StubLevel(r.StubLevel),
		ShowCursorAbove: r.ShowCursorAbove,
		ShowCursorBelow: r.ShowCursorBelow,
	}
	if u, err := url.Parse(r.Queried); err == nil && r.Queried != "" {
		si.QueriedEndpoint = u
	}
	if u, err := url.Parse(r.Designated); err == nil && r.Designated != "" {
		si.DesignatedEndpoint = u
	}
	return si
}

// SaveEnvironment replaces the snapshot sessionID with the content of env.
func (s *Store) SaveEnvironment(ctx context.Context, sessionID string, env *fetch.Environment) (err error) {
	if sessionID == "" {
		return common.NewErrBadRequest("SNAPSHOT-SAVE-NOID: session id is required")
	}
	fc := env.FetchContext()
	rec := fc.Record
	if rec == nil {
		rec = fetch.NewConnectionRecord(fetch.BaseRepository)
	}
	recordJSON, err := common.Marshal(rec)
	if err != nil {
		return common.NewInternalServerError("SNAPSHOT-SAVE-RECORD: " + err.Error())
	}

	entityRows := make([]any, 0)
	for _, kind := range fetch.Kinds {
		st := kind.Store(env)
		for _, idx := range st.Indices() {
			data, side, taint, ok := st.Get(idx)
			if !ok {
				continue
			}
			var payload, sideJSON any
			id := ""
			if side != nil {
				id = side.ID
				b, err := common.Marshal(toSideRecord(side))
				if err != nil {
					return common.NewInternalServerError("SNAPSHOT-SAVE-SIDE: " + err.Error())
				}
				sideJSON = string(b)
			}
			if data != nil {
				id = data.ID()
				jsonable, err := jsonization.ToJsonable(data)
				if err != nil {
					return common.NewInternalServerError(fmt.Sprintf("SNAPSHOT-SAVE-SERIALIZE: %s %q: %v", kind.Name, id, err))
				}
				b, err := common.Marshal(jsonable)
				if err != nil {
					return common.NewInternalServerError("SNAPSHOT-SAVE-SERIALIZE: " + err.Error())
				}
				payload = string(b)
			}
			entityRows = append(entityRows, goqu.Record{
				colSessionID: sessionID,
				colKind:      kind.Name,
				colPosition:  idx,
				colEntityID:  id,
				colPayload:   payload,
				colSide:      sideJSON,
				colTaint:     int(taint),
			})
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.LogError("SNAPSHOT-SAVE-BEGIN", err)
		return common.NewInternalServerError("SNAPSHOT-SAVE-BEGIN: failed to start postgres transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteSessionRows(ctx, tx, sessionID); err != nil {
		return err
	}

	d := goqu.Dialect(dialect)
	sqlStr, args, err := d.
		Insert(tblSession).
		Prepared(true).
		Rows(goqu.Record{
			colSessionID: sessionID,
			colLocation:  fc.Location,
			colCursor:    fc.Cursor,
			colBaseType:  rec.BaseType.String(),
			colOperation: rec.Operation().String(),
			colRecord:    string(recordJSON),
			colSavedAt:   time.Now().UTC(),
		}).
		ToSQL()
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, sqlStr, args...); err != nil {
		s.log.LogError("SNAPSHOT-SAVE-SESSION", err)
		return common.NewInternalServerError("SNAPSHOT-SAVE-SESSION: " + err.Error())
	}

	if len(entityRows) > 0 {
		sqlStr, args, err = d.Insert(tblEntity).Prepared(true).Rows(entityRows...).ToSQL()
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, sqlStr, args...); err != nil {
			s.log.LogError("SNAPSHOT-SAVE-ENTITIES", err)
			return common.NewInternalServerError("SNAPSHOT-SAVE-ENTITIES: " + err.Error())
		}
	}

	thumbs := env.Thumbnails()
	if len(thumbs) > 0 {
		rows := make([]any, 0, len(thumbs))
		for id, t := range thumbs {
			rows = append(rows, goqu.Record{
				colSessionID:   sessionID,
				colAASID:       id,
				colContentType: t.ContentType,
				colData:        t.Data,
			})
		}
		sqlStr, args, err = d.Insert(tblThumbnail).Prepared(true).Rows(rows...).ToSQL()
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, sqlStr, args...); err != nil {
			s.log.LogError("SNAPSHOT-SAVE-THUMBNAILS", err)
			return common.NewInternalServerError("SNAPSHOT-SAVE-THUMBNAILS: " + err.Error())
		}
	}

	if err = tx.Commit(); err != nil {
		s.log.LogError("SNAPSHOT-SAVE-COMMIT", err)
		return common.NewInternalServerError("SNAPSHOT-SAVE-COMMIT: " + err.Error())
	}
	s.log.Infof("saved session %q: %d slots, %d thumbnails", sessionID, len(entityRows), len(thumbs))
	return nil
}

func deleteSessionRows(ctx context.Context, tx *sql.Tx, sessionID string) error {
	_, err := deleteSessionRowsCounted(ctx, tx, sessionID)
	return err
}

// deleteSessionRowsCounted removes all rows of a session and returns how
// many session rows were deleted.
func deleteSessionRowsCounted(ctx context.Context, tx *sql.Tx, sessionID string) (int64, error) {
	d := goqu.Dialect(dialect)
	var removed int64
	for _, tbl := range []string{tblThumbnail, tblEntity, tblSession} {
		sqlStr, args, err := d.Delete(tbl).Prepared(true).Where(goqu.C(colSessionID).Eq(sessionID)).ToSQL()
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return 0, common.NewInternalServerError(fmt.Sprintf("SNAPSHOT-DELETE-%s: %v", tbl, err))
		}
		if tbl == tblSession {
			removed, _ = res.RowsAffected()
		}
	}
	return removed, nil
}

// LoadEnvironment rebuilds the environment saved as sessionID, including
// stubs, taint states, thumbnails and the context needed by FetchMore.
func (s *Store) LoadEnvironment(ctx context.Context, sessionID string) (*fetch.Environment, error) {
	d := goqu.Dialect(dialect)

	sqlStr, args, err := d.
		From(tblSession).
		Prepared(true).
		Select(colLocation, colCursor, colBaseType, colOperation, colRecord).
		Where(goqu.C(colSessionID).Eq(sessionID)).
		ToSQL()
	if err != nil {
		return nil, err
	}
	var location, cursor, baseType, operation string
	var recordJSON []byte
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&location, &cursor, &baseType, &operation, &recordJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewErrNotFound("SNAPSHOT-LOAD-NOSESSION: " + sessionID)
	}
	if err != nil {
		s.log.LogError("SNAPSHOT-LOAD-SESSION", err)
		return nil, common.NewInternalServerError("SNAPSHOT-LOAD-SESSION: " + err.Error())
	}

	bt, err := fetch.ParseBaseType(baseType)
	if err != nil {
		return nil, err
	}
	rec := fetch.NewConnectionRecord(bt)
	if err := common.Unmarshal(recordJSON, rec); err != nil {
		return nil, common.NewErrDeserialize("SNAPSHOT-LOAD-RECORD", err)
	}
	op, err := fetch.ParseOperation(operation)
	if err != nil {
		return nil, err
	}
	rec.SelectOperation(op)

	env := fetch.NewEnvironment()
	if err := s.loadEntities(ctx, sessionID, env); err != nil {
		return nil, err
	}
	if err := s.loadThumbnails(ctx, sessionID, env); err != nil {
		return nil, err
	}
	env.RestoreFetchContext(fetch.FetchContext{Record: rec, Location: location, Cursor: cursor})
	return env, nil
}

func (s *Store) loadEntities(ctx context.Context, sessionID string, env *fetch.Environment) error {
	d := goqu.Dialect(dialect)
	sqlStr, args, err := d.
		From(tblEntity).
		Prepared(true).
		Select(colKind, colEntityID, colPayload, colSide, colTaint).
		Where(goqu.C(colSessionID).Eq(sessionID)).
		Order(goqu.C(colKind).Asc(), goqu.C(colPosition).Asc()).
		ToSQL()
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return common.NewInternalServerError("SNAPSHOT-LOAD-ENTITIES: " + err.Error())
	}
	defer func() { _ = rows.Close() }()

	kinds := make(map[string]*fetch.ElementKind, len(fetch.Kinds))
	for _, k := range fetch.Kinds {
		kinds[k.Name] = k
	}

	for rows.Next() {
		var kindName, entityID string
		var payload, side []byte
		var taint int
		if err := rows.Scan(&kindName, &entityID, &payload, &side, &taint); err != nil {
			return common.NewInternalServerError("SNAPSHOT-LOAD-SCAN: " + err.Error())
		}
		kind, ok := kinds[kindName]
		if !ok {
			s.log.Warnf("SNAPSHOT-LOAD-KIND: unknown kind %q for %q skipped", kindName, entityID)
			continue
		}

		var si *sideinfo.SideInfo
		if len(side) > 0 {
			var r sideRecord
			if err := common.Unmarshal(side, &r); err != nil {
				return common.NewErrDeserialize("SNAPSHOT-LOAD-SIDE "+entityID, err)
			}
			si = r.toSideInfo()
		}

		st := kind.Store(env)
		if len(payload) == 0 {
			if si == nil {
				si = sideinfo.NewStub(entityID, nil)
			}
			st.AddStub(si)
			continue
		}
		jsonable, err := common.UnmarshalJsonable(payload)
		if err != nil {
			return common.NewErrDeserialize("SNAPSHOT-LOAD-PAYLOAD "+entityID, err)
		}
		entity, err := kind.Deserialize(jsonable)
		if err != nil {
			return common.NewErrDeserialize(kind.Name+" "+entityID, err)
		}
		if _, _, err := st.AddIfNew(entity, si, sideinfo.Taint(taint)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) loadThumbnails(ctx context.Context, sessionID string, env *fetch.Environment) error {
	d := goqu.Dialect(dialect)
	sqlStr, args, err := d.
		From(tblThumbnail).
		Prepared(true).
		Select(colAASID, colContentType, colData).
		Where(goqu.C(colSessionID).Eq(sessionID)).
		ToSQL()
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return common.NewInternalServerError("SNAPSHOT-LOAD-THUMBNAILS: " + err.Error())
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id, ct string
		var data []byte
		if err := rows.Scan(&id, &ct, &data); err != nil {
			return common.NewInternalServerError("SNAPSHOT-LOAD-SCAN: " + err.Error())
		}
		env.SetThumbnail(id, fetch.Thumbnail{ContentType: ct, Data: data})
	}
	return rows.Err()
}

// DeleteSession removes a snapshot.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewInternalServerError("SNAPSHOT-DELETE-BEGIN: " + err.Error())
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	removed, err := deleteSessionRowsCounted(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if removed == 0 {
		err = common.NewErrNotFound("SNAPSHOT-DELETE-NOSESSION: " + sessionID)
		return err
	}
	if err = tx.Commit(); err != nil {
		return common.NewInternalServerError("SNAPSHOT-DELETE-COMMIT: " + err.Error())
	}
	return nil
}

// SessionInfo describes a stored snapshot.
type SessionInfo struct {
	ID       string
	Location string
	SavedAt  time.Time
}

// ListSessions returns all snapshots, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	sqlStr, args, err := goqu.Dialect(dialect).
		From(tblSession).
		Select(colSessionID, colLocation, colSavedAt).
		Order(goqu.C(colSavedAt).Desc()).
		ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, common.NewInternalServerError("SNAPSHOT-LIST: " + err.Error())
	}
	defer func() { _ = rows.Close() }()

	var out []SessionInfo
	for rows.Next() {
		var si SessionInfo
		if err := rows.Scan(&si.ID, &si.Location, &si.SavedAt); err != nil {
			return nil, common.NewInternalServerError("SNAPSHOT-LIST-SCAN: " + err.Error())
		}
		out = append(out, si)
	}
	return out, rows.Err()
}
