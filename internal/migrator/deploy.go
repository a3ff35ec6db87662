package migrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KongzTech/moonzip-backend/infrastructure/resilience"
	"github.com/KongzTech/moonzip-backend/internal/executor"
	"github.com/KongzTech/moonzip-backend/internal/instructions"
	"github.com/KongzTech/moonzip-backend/internal/ipfs"
	"github.com/KongzTech/moonzip-backend/internal/mzip"
	"github.com/KongzTech/moonzip-backend/internal/solana"
	"github.com/KongzTech/moonzip-backend/internal/storage"
)

const devWebsite = "https://moon.zip"

// projectMigration advances one project by one stage.
type projectMigration struct {
	tools   *Tools
	project storage.StoredProject
	log     *logrus.Entry
}

func (t *projectMigration) migrate(ctx context.Context) error {
	helper := newChainHelper(t.tools, &t.project)
	switch t.project.Stage {
	case storage.StageConfirmed:
		// The project graduates straight to the curve pool.
		if t.project.DeploySchema.StaticPool != nil {
			return fmt.Errorf("invariant: project must have begun straight to static pool")
		}
		return t.deployCurve(ctx, helper)
	case storage.StageStaticPoolClosed:
		return t.deployCurve(ctx, helper)
	case storage.StageOnStaticPool:
		shouldClose, err := helper.shouldCloseStaticPool(ctx)
		if err != nil {
			return err
		}
		if shouldClose {
			return t.deployCurve(ctx, helper)
		}
		return nil
	case storage.StageCurvePoolClosed:
		lock, err := t.lockWithStage(ctx, func(stage storage.Stage) bool {
			return stage == storage.StageCurvePoolClosed
		})
		if err != nil {
			return err
		}
		defer lock.Rollback()
		return t.graduateToRaydium(ctx, lock)
	default:
		return fmt.Errorf("invariant: other stage must not propagate to the migrator")
	}
}

// lockWithStage takes the project row lock and re-verifies the stage under
// it, guarding against a concurrent advancement.
func (t *projectMigration) lockWithStage(ctx context.Context, verify func(storage.Stage) bool) (*storage.ProjectLock, error) {
	lock, err := t.tools.Store.LockProject(ctx, t.project.ID)
	if err != nil {
		return nil, err
	}
	if !verify(lock.Project.Stage) {
		stage := lock.Project.Stage
		lock.Rollback()
		return nil, fmt.Errorf("project stage mismatch (actual %s): updated by different process", stage)
	}
	return lock, nil
}

func (t *projectMigration) deployCurve(ctx context.Context, helper *chainHelper) error {
	verify := func(stage storage.Stage) bool {
		return stage == storage.StageStaticPoolClosed ||
			stage == storage.StageConfirmed ||
			stage == storage.StageOnStaticPool
	}

	lock, err := t.lockWithStage(ctx, verify)
	if err != nil {
		return err
	}

	// Assign the curve keypair and pin metadata first if needed; that
	// sub-phase commits on its own, so the lock is retaken afterwards.
	if _, ok := lock.Project.CurvePoolMint(); !ok {
		if err := t.prepareCurveDeploy(ctx, lock); err != nil {
			lock.Rollback()
			return err
		}
		lock, err = t.lockWithStage(ctx, verify)
		if err != nil {
			return err
		}
	}
	defer lock.Rollback()

	return t.initCurvePool(ctx, lock, helper)
}

// prepareCurveDeploy assigns a preloaded curve keypair and records the
// pinned metadata URL, committing the lock's transaction.
func (t *projectMigration) prepareCurveDeploy(ctx context.Context, lock *storage.ProjectLock) error {
	if err := lock.AssignKeypairs(ctx); err != nil {
		return err
	}
	if _, err := t.deployMetadata(ctx, lock); err != nil {
		return err
	}
	return lock.Commit()
}

func (t *projectMigration) deployMetadata(ctx context.Context, lock *storage.ProjectLock) (string, error) {
	meta, err := lock.TokenMeta(ctx)
	if err != nil {
		return "", err
	}
	if meta.DeployedURL != nil {
		return *meta.DeployedURL, nil
	}
	image, err := lock.TokenImage(ctx)
	if err != nil {
		return "", err
	}

	// Pinning goes over the public internet; flaky responses get a short
	// retry budget before the whole migration attempt is abandoned.
	retryCfg := resilience.DefaultRetryConfig()

	var metadataURL string
	switch lock.Project.DeploySchema.CurvePool {
	case storage.CurveVariantPumpfun:
		err = resilience.Retry(ctx, retryCfg, func() error {
			response, deployErr := t.tools.PumpfunIpfs.DeployMetadata(ctx, ipfs.CreateTokenMetadata{
				Name:         meta.Name,
				Symbol:       meta.Symbol,
				Description:  meta.Description,
				ImageContent: image,
				Twitter:      meta.Twitter,
				Telegram:     meta.Telegram,
				Website:      meta.Website,
			})
			if deployErr != nil {
				return deployErr
			}
			metadataURL = response.MetadataURI
			return nil
		})
		if err != nil {
			return "", err
		}
	default:
		err = resilience.Retry(ctx, retryCfg, func() error {
			imageURL, uploadErr := t.tools.MzipIpfs.UploadImage(ctx, image, meta.Name)
			if uploadErr != nil {
				return uploadErr
			}
			metadataURL, uploadErr = t.tools.MzipIpfs.UploadJSON(ctx, ipfs.OffchainMetadata{
				Name:        meta.Name,
				Symbol:      meta.Symbol,
				Description: meta.Description,
				Image:       imageURL,
				ShowName:    true,
				CreatedOn:   devWebsite,
				Telegram:    meta.Telegram,
				Website:     meta.Website,
				Twitter:     meta.Twitter,
			}, meta.Name)
			return uploadErr
		})
		if err != nil {
			return "", err
		}
	}

	if err := lock.SetDeployedURL(ctx, metadataURL); err != nil {
		return "", err
	}
	return metadataURL, nil
}

// initCurvePool builds and submits the curve pool deployment: one
// transaction, or an atomic bundle when a separate dev-lock transaction is
// required.
func (t *projectMigration) initCurvePool(ctx context.Context, lock *storage.ProjectLock, helper *chainHelper) error {
	project := &lock.Project
	ops, err := t.tools.Builder.ForProject(ctx, project)
	if err != nil {
		return err
	}

	var devPurchase *instructions.InitialPurchase
	if purchase := project.DeploySchema.DevPurchase; purchase != nil {
		devPurchase = &instructions.InitialPurchase{
			User: t.tools.Builder.Config.Authority,
			Sols: purchase.Amount,
		}
	}

	var postDevPurchase *instructions.InitialPurchase
	if project.DeploySchema.StaticPool != nil {
		pool, err := helper.staticPool(ctx)
		if err != nil {
			return err
		}
		if pool.CollectedLamports > 0 {
			postDevPurchase = &instructions.InitialPurchase{
				User: t.tools.Builder.Config.Authority,
				Sols: pool.CollectedLamports,
			}
		}
	}

	curveKeypair, ok := project.CurveKeypair()
	if !ok {
		return fmt.Errorf("invariant: curve pool secret key is not already stored")
	}
	shouldLock := project.DeploySchema.NeedsDevLock()

	meta, err := lock.TokenMeta(ctx)
	if err != nil {
		return err
	}
	curveCreate := instructions.CurveCreate{
		Mint:            curveKeypair.Pubkey(),
		DevPurchase:     devPurchase,
		PostDevPurchase: postDevPurchase,
		Metadata:        meta,
	}

	firstTx, err := ops.LockProject()
	if err != nil {
		return err
	}
	if project.DeploySchema.StaticPool != nil {
		graduate, err := ops.GraduateStaticPool()
		if err != nil {
			return err
		}
		firstTx = append(firstTx, graduate...)
	}

	switch project.DeploySchema.CurvePool {
	case storage.CurveVariantPumpfun:
		create, err := ops.InitPumpfunPool(ctx, curveCreate)
		if err != nil {
			return err
		}
		firstTx = append(firstTx, create...)
	default:
		create, err := ops.InitMzipPool(curveCreate)
		if err != nil {
			return err
		}
		firstTx = append(firstTx, create...)
	}

	// Without a lock period the dev tokens are delivered straight away.
	if devPurchase != nil && !shouldLock {
		deliver, err := ops.DeliverDevTokens(ctx)
		if err != nil {
			return err
		}
		firstTx = append(firstTx, deliver...)
		transmuter, err := ops.InitTransmuter()
		if err != nil {
			return err
		}
		firstTx = append(firstTx, transmuter...)
	}

	unlock, err := ops.UnlockProject()
	if err != nil {
		return err
	}
	firstTx = append(firstTx, unlock...)

	authority := t.tools.Authority
	requests := []executor.TransactionRequest{{
		Instructions: firstTx,
		Signers:      []solana.Keypair{authority, curveKeypair},
		Payer:        authority,
	}}

	// The vesting lock is heavyweight, so it rides in a second transaction
	// of the same atomic bundle.
	if devPurchase != nil && shouldLock {
		devLockKeypair, ok := project.DevLock()
		if !ok {
			return fmt.Errorf("invariant: no dev lock keypair, but need to lock")
		}
		secondTx, err := ops.LockProject()
		if err != nil {
			return err
		}
		lockDev, err := ops.LockDev(ctx, time.Now())
		if err != nil {
			return err
		}
		secondTx = append(secondTx, lockDev...)
		transmuter, err := ops.InitTransmuter()
		if err != nil {
			return err
		}
		secondTx = append(secondTx, transmuter...)
		unlock, err := ops.UnlockProject()
		if err != nil {
			return err
		}
		secondTx = append(secondTx, unlock...)

		requests = append(requests, executor.TransactionRequest{
			Instructions: secondTx,
			Signers:      []solana.Keypair{authority, devLockKeypair},
			Payer:        authority,
		})
	}

	if len(requests) == 1 {
		return t.tools.Executor.ExecuteSingle(ctx, requests[0])
	}
	return t.tools.Executor.ExecuteBatch(ctx, requests)
}

// graduateToRaydium closes the curve pool and deploys its liquidity to the
// external exchange as a two-transaction bundle.
func (t *projectMigration) graduateToRaydium(ctx context.Context, lock *storage.ProjectLock) error {
	ops, err := t.tools.Builder.ForProject(ctx, &lock.Project)
	if err != nil {
		return err
	}
	firstTx, err := ops.GraduateCurvePool()
	if err != nil {
		return err
	}
	market, marketIxs, err := ops.PrepareOpenbookMarket()
	if err != nil {
		return err
	}
	firstTx = append(firstTx, marketIxs...)

	tipCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	tipState, err := t.tools.TipState.Get(tipCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("await tip state: %w", err)
	}
	firstTx = append(firstTx, tipState.TipInstruction(t.tools.Builder.Config.Authority))

	metaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	mzipMeta, err := t.tools.MzipMeta.Get(metaCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("await mzip meta: %w", err)
	}
	curveConfig := mzipMeta.Global.Curve
	tokensAmount := curveConfig.TotalTokenSupply - curveConfig.InitialRealTokenReserves

	secondTx, err := ops.DeployToRaydium(market, tokensAmount, t.tools.Builder.Config.RaydiumLiquidity)
	if err != nil {
		return err
	}

	authority := t.tools.Authority
	return t.tools.Executor.ExecuteBatch(ctx, []executor.TransactionRequest{
		{Instructions: firstTx, Signers: []solana.Keypair{authority}, Payer: authority},
		{Instructions: secondTx, Signers: []solana.Keypair{authority}, Payer: authority},
	})
}

// chainHelper caches the static pool account within one migration attempt.
type chainHelper struct {
	tools   *Tools
	project *storage.StoredProject
	fetched *mzip.StaticPool
}

func newChainHelper(tools *Tools, project *storage.StoredProject) *chainHelper {
	return &chainHelper{tools: tools, project: project}
}

func (h *chainHelper) staticPool(ctx context.Context) (*mzip.StaticPool, error) {
	if h.fetched != nil {
		return h.fetched, nil
	}
	mint, ok := h.project.StaticPoolMint()
	if !ok {
		return nil, fmt.Errorf("invariant: static pool mint is not already stored")
	}
	address := mzip.StaticPoolAddress(h.tools.Builder.Config.MzipProgram, mint)
	client, err := h.tools.Pool.RPC().Use(ctx)
	if err != nil {
		return nil, err
	}
	account, err := client.GetAccountData(ctx, address, solana.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("fetch static pool: %w", err)
	}
	pool, err := mzip.ParseStaticPool(account.Data)
	if err != nil {
		return nil, err
	}
	h.fetched = &pool
	return h.fetched, nil
}

func (h *chainHelper) shouldCloseStaticPool(ctx context.Context) (bool, error) {
	pool, err := h.staticPool(ctx)
	if err != nil {
		return false, err
	}
	return pool.Config.CloseConditions.ShouldBeClosed(
		pool.CollectedLamports, uint64(time.Now().Unix())), nil
}
