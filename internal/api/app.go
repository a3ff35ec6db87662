package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KongzTech/moonzip-backend/internal/instructions"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

// App implements the API's domain operations.
type App struct {
	Store   *storage.Store
	Builder *instructions.Builder
}

// CreateTokenMeta is the token metadata of a creation request.
type CreateTokenMeta struct {
	Name        string  `json:"name" binding:"required"`
	Symbol      string  `json:"symbol" binding:"required"`
	Description string  `json:"description"`
	Website     *string `json:"website"`
	Twitter     *string `json:"twitter"`
	Telegram    *string `json:"telegram"`
}

// StaticPoolSchema requests a pre-launch collection pool.
type StaticPoolSchema struct {
	LaunchPeriod int64 `json:"launchPeriod"` // seconds
}

// DevPurchaseSchema requests a developer purchase.
type DevPurchaseSchema struct {
	Amount     uint64 `json:"amount"`
	LockPeriod int64  `json:"lockPeriod"` // seconds
}

// DeploySchemaRequest is the requested deployment shape.
type DeploySchemaRequest struct {
	StaticPool  *StaticPoolSchema    `json:"staticPool"`
	CurvePool   storage.CurveVariant `json:"curvePool" binding:"required"`
	DevPurchase *DevPurchaseSchema   `json:"devPurchase"`
}

// CreateProjectRequest creates a new project.
type CreateProjectRequest struct {
	Owner        string              `json:"owner" binding:"required"`
	Meta         CreateTokenMeta     `json:"meta" binding:"required"`
	DeploySchema DeploySchemaRequest `json:"deploySchema" binding:"required"`
	ImageContent []byte              `json:"imageContent" binding:"required"`
}

// CreateProjectResponse returns the id and the unsigned creation
// transaction for the owner to sign client-side.
type CreateProjectResponse struct {
	ProjectID   uuid.UUID `json:"projectId"`
	Transaction string    `json:"transaction"`
}

func (r DeploySchemaRequest) toStored(now time.Time) storage.DeploySchema {
	schema := storage.DeploySchema{CurvePool: r.CurvePool}
	if r.StaticPool != nil {
		schema.StaticPool = &storage.StaticPoolConfig{
			LaunchTs: now.Add(time.Duration(r.StaticPool.LaunchPeriod) * time.Second).Unix(),
		}
	}
	if r.DevPurchase != nil {
		schema.DevPurchase = &storage.DevPurchase{
			Amount:     r.DevPurchase.Amount,
			LockPeriod: r.DevPurchase.LockPeriod,
		}
	}
	return schema
}

func (a *App) validateSchema(request DeploySchemaRequest) error {
	switch request.CurvePool {
	case storage.CurveVariantMzip, storage.CurveVariantPumpfun:
	default:
		return fmt.Errorf("unknown curve pool variant %q", request.CurvePool)
	}
	if request.StaticPool != nil {
		if !containsInt64(a.Builder.Config.AllowedLaunchPeriods, request.StaticPool.LaunchPeriod) {
			return fmt.Errorf("launch period %ds is not allowed", request.StaticPool.LaunchPeriod)
		}
	}
	if request.DevPurchase != nil {
		if request.DevPurchase.Amount == 0 {
			return fmt.Errorf("dev purchase amount must be positive")
		}
		if !containsInt64(a.Builder.Config.AllowedLockPeriods, request.DevPurchase.LockPeriod) {
			return fmt.Errorf("lock period %ds is not allowed", request.DevPurchase.LockPeriod)
		}
	}
	return nil
}

func containsInt64(values []int64, value int64) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}

// CreateProject inserts the project in stage Created and returns the
// unsigned create transaction.
func (a *App) CreateProject(ctx context.Context, request CreateProjectRequest) (CreateProjectResponse, error) {
	owner, err := solana.ParsePubkey(request.Owner)
	if err != nil {
		return CreateProjectResponse{}, fmt.Errorf("decode owner: %w", err)
	}
	if err := a.validateSchema(request.DeploySchema); err != nil {
		return CreateProjectResponse{}, err
	}

	now := time.Now().UTC()
	project := &storage.StoredProject{
		ID:           uuid.New(),
		Owner:        storage.StoredPubkeyOf(owner),
		DeploySchema: request.DeploySchema.toStored(now),
		Stage:        storage.StageCreated,
		CreatedAt:    now,
	}

	ops, err := a.Builder.ForProject(ctx, project)
	if err != nil {
		return CreateProjectResponse{}, err
	}
	ixs, err := ops.CreateProject()
	if err != nil {
		return CreateProjectResponse{}, err
	}
	tx, err := solana.NewTransaction(ixs, owner)
	if err != nil {
		return CreateProjectResponse{}, err
	}

	meta := &storage.StoredTokenMeta{
		ProjectID:   project.ID,
		Name:        request.Meta.Name,
		Symbol:      request.Meta.Symbol,
		Description: request.Meta.Description,
		Website:     request.Meta.Website,
		Twitter:     request.Meta.Twitter,
		Telegram:    request.Meta.Telegram,
	}
	if err := a.Store.InsertProject(ctx, project, meta, request.ImageContent); err != nil {
		return CreateProjectResponse{}, err
	}

	return CreateProjectResponse{
		ProjectID:   project.ID,
		Transaction: tx.SerializeBase58(),
	}, nil
}

// BuyRequest asks for a purchase transaction.
type BuyRequest struct {
	User           string    `json:"user" binding:"required"`
	ProjectID      uuid.UUID `json:"projectId" binding:"required"`
	Sols           uint64    `json:"sols" binding:"required"`
	MinTokenOutput *uint64   `json:"minTokenOutput"`
}

// SellRequest asks for a sale transaction.
type SellRequest struct {
	User         string    `json:"user" binding:"required"`
	ProjectID    uuid.UUID `json:"projectId" binding:"required"`
	Tokens       uint64    `json:"tokens" binding:"required"`
	MinSolOutput *uint64   `json:"minSolOutput"`
}

// TradeResponse carries the unsigned trade transaction.
type TradeResponse struct {
	Transaction string `json:"transaction"`
}

// Buy builds the stage-appropriate purchase transaction for the user.
func (a *App) Buy(ctx context.Context, request BuyRequest) (TradeResponse, error) {
	user, err := solana.ParsePubkey(request.User)
	if err != nil {
		return TradeResponse{}, fmt.Errorf("decode user: %w", err)
	}
	project, err := a.Store.GetProject(ctx, request.ProjectID)
	if err != nil {
		return TradeResponse{}, err
	}
	ops, err := a.Builder.ForProject(ctx, project)
	if err != nil {
		return TradeResponse{}, err
	}
	ixs, err := ops.Buy(ctx, user, request.Sols, request.MinTokenOutput)
	if err != nil {
		return TradeResponse{}, err
	}
	return tradeResponse(ixs, user)
}

// Sell builds the stage-appropriate sale transaction for the user.
func (a *App) Sell(ctx context.Context, request SellRequest) (TradeResponse, error) {
	user, err := solana.ParsePubkey(request.User)
	if err != nil {
		return TradeResponse{}, fmt.Errorf("decode user: %w", err)
	}
	project, err := a.Store.GetProject(ctx, request.ProjectID)
	if err != nil {
		return TradeResponse{}, err
	}
	ops, err := a.Builder.ForProject(ctx, project)
	if err != nil {
		return TradeResponse{}, err
	}
	ixs, err := ops.Sell(ctx, user, request.Tokens, request.MinSolOutput)
	if err != nil {
		return TradeResponse{}, err
	}
	return tradeResponse(ixs, user)
}

func tradeResponse(ixs []solana.Instruction, payer solana.Pubkey) (TradeResponse, error) {
	tx, err := solana.NewTransaction(ixs, payer)
	if err != nil {
		return TradeResponse{}, err
	}
	return TradeResponse{Transaction: tx.SerializeBase58()}, nil
}

// PublicProjectStage is the externally visible lifecycle subset.
type PublicProjectStage string

const (
	PublicStaticPoolActive PublicProjectStage = "staticPoolActive"
	PublicStaticPoolClosed PublicProjectStage = "staticPoolClosed"
	PublicCurvePoolActive  PublicProjectStage = "curvePoolActive"
	PublicCurvePoolClosed  PublicProjectStage = "curvePoolClosed"
	PublicGraduated        PublicProjectStage = "graduated"
)

var publicStages = map[storage.Stage]PublicProjectStage{
	storage.StageOnStaticPool:     PublicStaticPoolActive,
	storage.StageStaticPoolClosed: PublicStaticPoolClosed,
	storage.StageOnCurvePool:      PublicCurvePoolActive,
	storage.StageCurvePoolClosed:  PublicCurvePoolClosed,
	storage.StageGraduated:        PublicGraduated,
}

// PublicProject is the public projection of a project.
type PublicProject struct {
	ID             uuid.UUID          `json:"id"`
	Owner          string             `json:"owner"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	CreatedAt      string             `json:"createdAt"`
	Stage          PublicProjectStage `json:"stage"`
	StaticPoolMint *string            `json:"staticPoolMint"`
	CurvePoolMint  *string            `json:"curvePoolMint"`
}

// GetProject returns the project's public projection; pre-launch projects
// are hidden.
func (a *App) GetProject(ctx context.Context, id uuid.UUID) (*PublicProject, error) {
	project, err := a.Store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	stage, ok := publicStages[project.Stage]
	if !ok {
		// Created and Confirmed are internal; expose nothing.
		return nil, nil
	}
	meta, err := a.Store.GetTokenMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := project.Owner.Pubkey()
	if err != nil {
		return nil, err
	}

	public := &PublicProject{
		ID:          project.ID,
		Owner:       owner.String(),
		Name:        meta.Name,
		Description: meta.Description,
		CreatedAt:   project.CreatedAt.Format(time.RFC3339),
		Stage:       stage,
	}
	if mint, ok := project.StaticPoolMint(); ok {
		text := mint.String()
		public.StaticPoolMint = &text
	}
	// The curve mint stays hidden until the curve pool is live.
	if stage != PublicStaticPoolActive && stage != PublicStaticPoolClosed {
		if mint, ok := project.CurvePoolMint(); ok {
			text := mint.String()
			public.CurvePoolMint = &text
		}
	}
	return public, nil
}
