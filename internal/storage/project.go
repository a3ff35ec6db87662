package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/KongzTech/moonzip-backend/internal/database"
	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/solana"
)

// StoredProject is the project aggregate row.
type StoredProject struct {
	ID               uuid.UUID     `db:"id"`
	Owner            StoredPubkey  `db:"owner"`
	DeploySchema     DeploySchema  `db:"deploy_schema"`
	Stage            Stage         `db:"stage"`
	StaticPoolPubkey StoredPubkey  `db:"static_pool_pubkey"`
	CurvePoolKeypair StoredKeypair `db:"curve_pool_keypair"`
	DevLockKeypair   StoredKeypair `db:"dev_lock_keypair"`
	CreatedAt        time.Time     `db:"created_at"`
}

// ChainID maps the project id onto its on-chain form.
func (p *StoredProject) ChainID() mzip.ProjectID {
	return mzip.ProjectIDFromUUID(p.ID)
}

// StaticPoolMint returns the static pool mint, if assigned.
func (p *StoredProject) StaticPoolMint() (solana.Pubkey, bool) {
	if len(p.StaticPoolPubkey) == 0 {
		return solana.Pubkey{}, false
	}
	key, err := p.StaticPoolPubkey.Pubkey()
	if err != nil {
		return solana.Pubkey{}, false
	}
	return key, true
}

// CurvePoolMint returns the curve pool mint, if the keypair is assigned.
func (p *StoredProject) CurvePoolMint() (solana.Pubkey, bool) {
	keypair, ok := p.CurveKeypair()
	if !ok {
		return solana.Pubkey{}, false
	}
	return keypair.Pubkey(), true
}

// CurveKeypair returns the curve pool keypair, if assigned.
func (p *StoredProject) CurveKeypair() (solana.Keypair, bool) {
	if len(p.CurvePoolKeypair) == 0 {
		return solana.Keypair{}, false
	}
	keypair, err := p.CurvePoolKeypair.Keypair()
	if err != nil {
		return solana.Keypair{}, false
	}
	return keypair, true
}

// DevLock returns the dev lock keypair, if assigned.
func (p *StoredProject) DevLock() (solana.Keypair, bool) {
	if len(p.DevLockKeypair) == 0 {
		return solana.Keypair{}, false
	}
	keypair, err := p.DevLockKeypair.Keypair()
	if err != nil {
		return solana.Keypair{}, false
	}
	return keypair, true
}

// ApplyChainStage folds the on-chain stage into the stored one, returning
// whether the stored stage advanced.
func (p *StoredProject) ApplyChainStage(chainStage mzip.ProjectStage) bool {
	mapped := StageFromChain(chainStage)
	if p.Stage.Before(mapped) {
		p.Stage = mapped
		return true
	}
	return false
}

// StageFromChain maps the program's stage onto the stored one. The chain's
// "created" means the project account materialized, which the store records
// as confirmed.
func StageFromChain(chainStage mzip.ProjectStage) Stage {
	switch chainStage {
	case mzip.StageChainCreated:
		return StageConfirmed
	case mzip.StageChainStaticPoolActive:
		return StageOnStaticPool
	case mzip.StageChainStaticPoolClosed:
		return StageStaticPoolClosed
	case mzip.StageChainCurvePoolActive:
		return StageOnCurvePool
	case mzip.StageChainCurvePoolClosed:
		return StageCurvePoolClosed
	case mzip.StageChainGraduated:
		return StageGraduated
	default:
		return StageCreated
	}
}

const projectColumns = `
	id,
	owner,
	deploy_schema,
	stage,
	static_pool_pubkey,
	curve_pool_keypair,
	dev_lock_keypair,
	created_at`

// StoredTokenMeta is the token metadata row.
type StoredTokenMeta struct {
	ProjectID   uuid.UUID `db:"project_id"`
	Name        string    `db:"name"`
	Symbol      string    `db:"symbol"`
	Description string    `db:"description"`
	Website     *string   `db:"website"`
	Twitter     *string   `db:"twitter"`
	Telegram    *string   `db:"telegram"`
	DeployedURL *string   `db:"deployed_url"`
}

// Store wraps project queries over the shared client.
type Store struct {
	db *database.Client
}

// NewStore creates a Store.
func NewStore(db *database.Client) *Store {
	return &Store{db: db}
}

// DB exposes the underlying client for callers that manage transactions.
func (s *Store) DB() *database.Client {
	return s.db
}

// InsertProject persists a new project with its metadata and image, and a
// zero static pool chain state when a static pool is configured.
func (s *Store) InsertProject(ctx context.Context, project *StoredProject, meta *StoredTokenMeta, image []byte) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO project (id, owner, deploy_schema, stage, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, project.ID, project.Owner, project.DeploySchema, project.Stage, project.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO token_meta (project_id, name, symbol, description, website, twitter, telegram)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, project.ID, meta.Name, meta.Symbol, meta.Description, meta.Website, meta.Twitter, meta.Telegram)
	if err != nil {
		return fmt.Errorf("insert token meta: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO token_image (project_id, image_content) VALUES ($1, $2)
	`, project.ID, image)
	if err != nil {
		return fmt.Errorf("insert token image: %w", err)
	}

	if project.DeploySchema.StaticPool != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO static_pool_chain_state (project_id, collected_lamports) VALUES ($1, 0)
		`, project.ID)
		if err != nil {
			return fmt.Errorf("insert static pool chain state: %w", err)
		}
	}

	return tx.Commit()
}

// GetProject fetches one project row.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*StoredProject, error) {
	var project StoredProject
	err := s.db.GetContext(ctx, &project,
		`SELECT `+projectColumns+` FROM project WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

// GetTokenMeta fetches a project's token metadata.
func (s *Store) GetTokenMeta(ctx context.Context, id uuid.UUID) (*StoredTokenMeta, error) {
	var meta StoredTokenMeta
	err := s.db.GetContext(ctx, &meta,
		`SELECT project_id, name, symbol, description, website, twitter, telegram, deployed_url
		 FROM token_meta WHERE project_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get token meta: %w", err)
	}
	return &meta, nil
}

// ListActivePage returns non-graduated projects created after the cursor,
// oldest first.
func (s *Store) ListActivePage(ctx context.Context, after time.Time, limit int) ([]StoredProject, error) {
	var projects []StoredProject
	err := s.db.SelectContext(ctx, &projects,
		`SELECT `+projectColumns+` FROM project
		 WHERE stage != $1 AND created_at > $2
		 ORDER BY created_at ASC LIMIT $3`,
		StageGraduated, after, limit)
	if err != nil {
		return nil, fmt.Errorf("list projects page: %w", err)
	}
	return projects, nil
}

// SetStage best-effort advances a project's stage outside any lock.
func (s *Store) SetStage(ctx context.Context, id uuid.UUID, stage Stage) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE project SET stage = $1 WHERE id = $2`, stage, id)
	if err != nil {
		return fmt.Errorf("set project stage: %w", err)
	}
	return nil
}

// LockProject opens a serializable transaction holding the project row lock
// (FOR UPDATE NOWAIT). A concurrently held lock surfaces as an error, which
// callers treat as "someone else is migrating this project".
func (s *Store) LockProject(ctx context.Context, id uuid.UUID) (*ProjectLock, error) {
	tx, err := s.db.SerializableTx(ctx)
	if err != nil {
		return nil, err
	}
	var project StoredProject
	err = tx.GetContext(ctx, &project,
		`SELECT `+projectColumns+` FROM project WHERE id = $1 FOR UPDATE NOWAIT`, id)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("lock project row: %w", err)
	}
	return &ProjectLock{Tx: tx, Project: project}, nil
}

// ProjectLock holds the locked project row inside its transaction.
type ProjectLock struct {
	Tx      *sqlx.Tx
	Project StoredProject
}

// Commit finishes the lock's transaction.
func (l *ProjectLock) Commit() error {
	return l.Tx.Commit()
}

// Rollback abandons the lock's transaction.
func (l *ProjectLock) Rollback() {
	_ = l.Tx.Rollback()
}

// TokenMeta fetches the token metadata inside the lock's transaction.
func (l *ProjectLock) TokenMeta(ctx context.Context) (*StoredTokenMeta, error) {
	var meta StoredTokenMeta
	err := l.Tx.GetContext(ctx, &meta,
		`SELECT project_id, name, symbol, description, website, twitter, telegram, deployed_url
		 FROM token_meta WHERE project_id = $1`, l.Project.ID)
	if err != nil {
		return nil, fmt.Errorf("get token meta: %w", err)
	}
	return &meta, nil
}

// TokenImage fetches the token image inside the lock's transaction.
func (l *ProjectLock) TokenImage(ctx context.Context) ([]byte, error) {
	var image []byte
	err := l.Tx.GetContext(ctx, &image,
		`SELECT image_content FROM token_image WHERE project_id = $1`, l.Project.ID)
	if err != nil {
		return nil, fmt.Errorf("get token image: %w", err)
	}
	return image, nil
}

// AssignKeypairs invokes the stored procedure that pops preloaded keypairs
// into the project row.
func (l *ProjectLock) AssignKeypairs(ctx context.Context) error {
	if _, err := l.Tx.ExecContext(ctx, `CALL assign_project_keypair($1)`, l.Project.ID); err != nil {
		return fmt.Errorf("assign project keypair: %w", err)
	}
	return nil
}

// SetDeployedURL records the pinned metadata URL inside the lock's
// transaction.
func (l *ProjectLock) SetDeployedURL(ctx context.Context, url string) error {
	_, err := l.Tx.ExecContext(ctx,
		`UPDATE token_meta SET deployed_url = $1 WHERE project_id = $2`, url, l.Project.ID)
	if err != nil {
		return fmt.Errorf("set deployed url: %w", err)
	}
	return nil
}

// InsertKeypair loads one preloaded keypair, ignoring duplicates.
func (s *Store) InsertKeypair(ctx context.Context, keypair StoredKeypair) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mzip_keypair (keypair) VALUES ($1) ON CONFLICT DO NOTHING`, keypair)
	if err != nil {
		return fmt.Errorf("insert keypair: %w", err)
	}
	return nil
}
