package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"propdesk/internal/llm"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) ListProperties(ctx context.Context) ([]Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, property_type, sold_on_installment, rented, plots, created_at
		 FROM properties ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *p)
	}
	return properties, rows.Err()
}

func (s *SQLiteStore) GetPropertyByID(ctx context.Context, id string) (*Property, error) {
	return s.getProperty(ctx, "id = ?", id)
}

func (s *SQLiteStore) GetPropertyByName(ctx context.Context, name string) (*Property, error) {
	return s.getProperty(ctx, "name = ?", name)
}

func (s *SQLiteStore) getProperty(ctx context.Context, where string, arg any) (*Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, address, property_type, sold_on_installment, rented, plots, created_at
		 FROM properties WHERE `+where+` LIMIT 1`, arg,
	)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *SQLiteStore) CreateProperty(ctx context.Context, p Property) (*Property, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Plots == nil {
		p.Plots = []string{}
	}

	plots, err := json.Marshal(p.Plots)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO properties (id, name, address, property_type, sold_on_installment, rented, plots)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Address, p.PropertyType, boolInt(p.IsSoldOnInstallment), boolInt(p.IsRented), string(plots),
	)
	if err != nil {
		return nil, err
	}
	return s.GetPropertyByID(ctx, p.ID)
}

func (s *SQLiteStore) UpdateProperty(ctx context.Context, id string, patch PropertyPatch) (*Property, error) {
	if patch.Empty() {
		return s.GetPropertyByID(ctx, id)
	}

	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Address != nil {
		sets = append(sets, "address = ?")
		args = append(args, *patch.Address)
	}
	if patch.PropertyType != nil {
		sets = append(sets, "property_type = ?")
		args = append(args, *patch.PropertyType)
	}
	if patch.IsSoldOnInstallment != nil {
		sets = append(sets, "sold_on_installment = ?")
		args = append(args, boolInt(*patch.IsSoldOnInstallment))
	}
	if patch.IsRented != nil {
		sets = append(sets, "rented = ?")
		args = append(args, boolInt(*patch.IsRented))
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE properties SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
	)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetPropertyByID(ctx, id)
}

func (s *SQLiteStore) CreateTask(ctx context.Context, description string) (*Task, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, description) VALUES (?, ?)`, id, description,
	)
	if err != nil {
		return nil, err
	}

	var t Task
	err = s.db.QueryRowContext(ctx,
		`SELECT id, description, created_at FROM tasks WHERE id = ?`, id,
	).Scan(&t.ID, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, chatID string, msg llm.Message) error {
	var toolCallsJSON *string
	if len(msg.ToolCalls) > 0 {
		data, _ := json.Marshal(msg.ToolCalls)
		str := string(data)
		toolCallsJSON = &str
	}

	var toolCallID *string
	if msg.ToolCallID != "" {
		toolCallID = &msg.ToolCallID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (chat_id, role, content, tool_calls, tool_call_id) VALUES (?, ?, ?, ?, ?)`,
		chatID, msg.Role, msg.Content, toolCallsJSON, toolCallID,
	)
	return err
}

func (s *SQLiteStore) History(ctx context.Context, chatID string, limit int) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id FROM (
			SELECT role, content, tool_calls, tool_call_id, id
			FROM messages WHERE chat_id = ? ORDER BY id DESC LIMIT ?
		) sub ORDER BY id ASC`,
		chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var msg llm.Message
		var toolCallsJSON, toolCallID sql.NullString

		if err := rows.Scan(&msg.Role, &msg.Content, &toolCallsJSON, &toolCallID); err != nil {
			return nil, err
		}

		if toolCallsJSON.Valid {
			_ = json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls)
		}
		if toolCallID.Valid {
			msg.ToolCallID = toolCallID.String
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(r rowScanner) (*Property, error) {
	var p Property
	var sold, rented int
	var plots string

	if err := r.Scan(&p.ID, &p.Name, &p.Address, &p.PropertyType, &sold, &rented, &plots, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.IsSoldOnInstallment = sold != 0
	p.IsRented = rented != 0
	if err := json.Unmarshal([]byte(plots), &p.Plots); err != nil {
		return nil, fmt.Errorf("decode plots for %s: %w", p.ID, err)
	}
	return &p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
