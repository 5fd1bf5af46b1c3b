package session

import "context"

// CorruptForTest overwrites the messages column of a row with invalid JSON,
// simulating on-disk corruption that List must tolerate.
func (s *SQLiteStore) CorruptForTest(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET messages = '{not json' WHERE id = ?`, id)
	return err
}
