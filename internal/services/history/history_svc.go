package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// FileMeta describes the stored object behind a "file" message. The
// relay never touches the bytes themselves; upload and download happen
// on a separate surface.
type FileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	URL  string `json:"url,omitempty"`
}

type StoredMessage struct {
	ID       string    `json:"id"`
	Room     string    `json:"room"`
	Identity string    `json:"user"`
	Body     string    `json:"text"`
	Kind     string    `json:"messageType"`
	File     *FileMeta `json:"file,omitempty"`
	Ts       time.Time `json:"ts"`
}

// IHistoryService archives chat messages. The gateway calls Append
// fire-and-forget: a failed append is logged and never blocks delivery.
// Query backs the history endpoint only; the fan-out core never reads.
type IHistoryService interface {
	Append(ctx context.Context, msg StoredMessage) (string, error)
	Query(ctx context.Context, room string, limit int) ([]StoredMessage, error)
}

type historyService struct {
	db *sql.DB
}

func NewHistoryService(db *sql.DB) IHistoryService {
	return &historyService{db: db}
}

func (svc *historyService) Append(ctx context.Context, msg StoredMessage) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	var fileName sql.NullString
	var fileSize sql.NullInt64
	if msg.File != nil {
		fileName = sql.NullString{String: msg.File.Name, Valid: true}
		fileSize = sql.NullInt64{Int64: msg.File.Size, Valid: true}
	}

	const insQ = `
	  INSERT INTO messages (id, room, identity, body, kind, file_name, file_size, ts)
	       VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	  ON CONFLICT (id) DO NOTHING`

	_, err := svc.db.ExecContext(ctx, insQ,
		msg.ID, msg.Room, msg.Identity, msg.Body, msg.Kind,
		fileName, fileSize, msg.Ts,
	)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (svc *historyService) Query(ctx context.Context, room string, limit int) ([]StoredMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
	  SELECT id, room, identity, body, kind,
	         coalesce(file_name, ''), coalesce(file_size, 0), ts
	    FROM messages
	   WHERE room = $1
	   ORDER BY ts DESC
	   LIMIT $2`

	rows, err := svc.db.QueryContext(ctx, q, room, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]StoredMessage, 0, limit)
	for rows.Next() {
		var m StoredMessage
		var fileName string
		var fileSize int64
		if err := rows.Scan(&m.ID, &m.Room, &m.Identity, &m.Body, &m.Kind,
			&fileName, &fileSize, &m.Ts); err != nil {
			return nil, err
		}
		if fileName != "" {
			m.File = &FileMeta{Name: fileName, Size: fileSize}
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
