package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = sql.ErrNoRows

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const userColumns = `id, email, display_name, password_hash, tier, is_email_verified,
	COALESCE(verification_token, ''), verification_expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var user User
	var expires sql.NullTime
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Tier,
		&user.IsEmailVerified, &user.VerificationToken, &expires, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	if expires.Valid {
		t := expires.Time
		user.VerificationExpiresAt = &t
	}
	return user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	tier := user.Tier
	if tier == "" {
		tier = "free"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, tier, is_email_verified, verification_token)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, NULLIF($7, ''))
	`, user.ID, strings.TrimSpace(user.Email), user.DisplayName, user.PasswordHash, tier, user.IsEmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=LOWER($1)`, strings.TrimSpace(email)))
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW()
		WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND (verification_expires_at IS NULL OR verification_expires_at > NOW())
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserTier(ctx context.Context, userID, tier string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET tier=$2, updated_at=NOW() WHERE id=$1`, userID, tier)
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// LookupRefreshSession returns the user id owning a live refresh session.
func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM refresh_sessions
		WHERE token_hash = $1
			AND revoked_at IS NULL
			AND expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// MergeDraft upserts the draft and merges fields key by key. Keys absent
// from fields keep their stored values.
func (s *PostgresStore) MergeDraft(ctx context.Context, userID, formKey string, fields map[string]string) (Draft, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return Draft{}, fmt.Errorf("marshal draft fields: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO drafts (user_id, form_key, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (user_id, form_key)
		DO UPDATE SET fields = drafts.fields || EXCLUDED.fields, updated_at = NOW()
		RETURNING user_id, form_key, fields, created_at, updated_at
	`, userID, formKey, string(payload))
	draft, err := scanDraft(row)
	if err != nil {
		return Draft{}, fmt.Errorf("merge draft: %w", err)
	}
	return draft, nil
}

func (s *PostgresStore) GetDraft(ctx context.Context, userID, formKey string) (Draft, error) {
	return scanDraft(s.db.QueryRowContext(ctx, `
		SELECT user_id, form_key, fields, created_at, updated_at
		FROM drafts WHERE user_id=$1 AND form_key=$2
	`, userID, formKey))
}

func (s *PostgresStore) ListDrafts(ctx context.Context, userID string) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, form_key, fields, created_at, updated_at
		FROM drafts WHERE user_id=$1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		out = append(out, draft)
	}
	return out, rows.Err()
}

func scanDraft(row interface{ Scan(...any) error }) (Draft, error) {
	var draft Draft
	var raw []byte
	if err := row.Scan(&draft.UserID, &draft.FormKey, &raw, &draft.CreatedAt, &draft.UpdatedAt); err != nil {
		return Draft{}, err
	}
	draft.Fields = map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &draft.Fields); err != nil {
			return Draft{}, fmt.Errorf("decode draft fields: %w", err)
		}
	}
	return draft, nil
}

// InsertCheckIn appends a check-in and returns it with id and timestamp.
func (s *PostgresStore) InsertCheckIn(ctx context.Context, checkIn CheckIn) (CheckIn, error) {
	emotions := checkIn.Emotions
	if emotions == nil {
		emotions = []string{}
	}
	payload, err := json.Marshal(emotions)
	if err != nil {
		return CheckIn{}, fmt.Errorf("marshal emotions: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO check_ins (user_id, emotions, alignment_score, need, type)
		VALUES ($1, $2::jsonb, $3, $4, $5)
		RETURNING id, recorded_at
	`, checkIn.UserID, string(payload), checkIn.AlignmentScore, checkIn.Need, checkIn.Type).Scan(&checkIn.ID, &checkIn.RecordedAt)
	if err != nil {
		return CheckIn{}, fmt.Errorf("insert check-in: %w", err)
	}
	checkIn.Emotions = emotions
	return checkIn, nil
}

func (s *PostgresStore) ListCheckIns(ctx context.Context, userID string, limit int) ([]CheckIn, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, emotions, alignment_score, need, type, recorded_at
		FROM check_ins
		WHERE user_id=$1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()

	var out []CheckIn
	for rows.Next() {
		var item CheckIn
		var raw []byte
		if err := rows.Scan(&item.ID, &item.UserID, &raw, &item.AlignmentScore, &item.Need, &item.Type, &item.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		if err := json.Unmarshal(raw, &item.Emotions); err != nil {
			return nil, fmt.Errorf("decode emotions: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertClarityResult(ctx context.Context, result ClarityResult) (ClarityResult, error) {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return ClarityResult{}, fmt.Errorf("marshal answers: %w", err)
	}
	choices, err := json.Marshal(result.Choices)
	if err != nil {
		return ClarityResult{}, fmt.Errorf("marshal choices: %w", err)
	}
	scores, err := json.Marshal(result.DimensionScores)
	if err != nil {
		return ClarityResult{}, fmt.Errorf("marshal scores: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO clarity_results (user_id, answers, choices, dimension_scores, total, identity_type)
		VALUES ($1, $2::jsonb, $3::jsonb, $4::jsonb, $5, $6)
		RETURNING id, recorded_at
	`, result.UserID, string(answers), string(choices), string(scores), result.Total, result.IdentityType).Scan(&result.ID, &result.RecordedAt)
	if err != nil {
		return ClarityResult{}, fmt.Errorf("insert clarity result: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) LatestClarityResult(ctx context.Context, userID string) (ClarityResult, error) {
	var result ClarityResult
	var answers, choices, scores []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, answers, choices, dimension_scores, total, identity_type, recorded_at
		FROM clarity_results
		WHERE user_id=$1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, userID).Scan(&result.ID, &result.UserID, &answers, &choices, &scores, &result.Total, &result.IdentityType, &result.RecordedAt)
	if err != nil {
		return ClarityResult{}, err
	}
	if err := errors.Join(
		json.Unmarshal(answers, &result.Answers),
		json.Unmarshal(choices, &result.Choices),
		json.Unmarshal(scores, &result.DimensionScores),
	); err != nil {
		return ClarityResult{}, fmt.Errorf("decode clarity result: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
