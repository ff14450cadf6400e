package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/chain"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/config"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/events"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/models"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/repositories"
	"go.uber.org/zap"
)

// RegistrationService registers accounts and assets: it creates the record,
// mints its token, links the token id back and writes the token metadata.
// A failed mint deletes the record again. A failed metadata write does not:
// the record stays linked to a token without metadata.
type RegistrationService struct {
	accounts  repositories.AccountStore
	assets    repositories.AssetStore
	auditRepo repositories.AuditStore
	issuer    chain.Issuer
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
}

func NewRegistrationService(
	accounts repositories.AccountStore,
	assets repositories.AssetStore,
	auditRepo repositories.AuditStore,
	issuer chain.Issuer,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		accounts:  accounts,
		assets:    assets,
		auditRepo: auditRepo,
		issuer:    issuer,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// RegisterAccount expects a request that passed ValidateAccountRequest. The
// nickname becomes the token URI.
func (s *RegistrationService) RegisterAccount(ctx context.Context, req AccountRequest) (*models.Registration, error) {
	rec := sagaRecord{
		kind:  models.RegistrationKindAccount,
		key:   req.Address,
		owner: req.Address,
		slot:  chain.SlotAccount,
		value: 1,
		uri:   req.Nickname,
		create: func(ctx context.Context) error {
			return s.accounts.Create(ctx, &models.Account{
				Address:   req.Address,
				Nickname:  req.Nickname,
				LinkState: models.LinkStatePending,
			})
		},
		link: func(ctx context.Context, tokenID string) error {
			return s.accounts.LinkToken(ctx, req.Address, tokenID)
		},
		remove: func(ctx context.Context) error {
			return s.accounts.Delete(ctx, req.Address)
		},
	}

	reg, err := s.run(ctx, rec)
	if err != nil {
		return nil, err
	}
	if acc, err := s.accounts.GetByAddress(ctx, req.Address); err == nil {
		reg.Account = acc
	}
	return reg, nil
}

// RegisterAsset expects a request that passed ValidateAssetRequest. The owner
// does not need a registered account. The source URL becomes the token URI
// and the like count its value.
func (s *RegistrationService) RegisterAsset(ctx context.Context, req AssetRequest) (*models.Registration, error) {
	rec := sagaRecord{
		kind:  models.RegistrationKindAsset,
		key:   req.Hash,
		owner: req.Address,
		slot:  chain.SlotAsset,
		value: req.Likes,
		uri:   req.SourceURL,
		create: func(ctx context.Context) error {
			return s.assets.Create(ctx, &models.Asset{
				Hash:         req.Hash,
				OwnerAddress: req.Address,
				SourceURL:    req.SourceURL,
				Likes:        req.Likes,
				UploadStatus: models.UploadStatusPending,
				LinkState:    models.LinkStatePending,
			})
		},
		link: func(ctx context.Context, tokenID string) error {
			return s.assets.LinkToken(ctx, req.Hash, tokenID)
		},
		remove: func(ctx context.Context) error {
			return s.assets.Delete(ctx, req.Hash)
		},
		setStatus: func(ctx context.Context, status string) error {
			return s.assets.SetUploadStatus(ctx, req.Hash, status)
		},
	}

	reg, err := s.run(ctx, rec)
	if err != nil {
		return nil, err
	}
	if asset, err := s.assets.GetByHash(ctx, req.Hash); err == nil {
		reg.Asset = asset
	}
	return reg, nil
}

func (s *RegistrationService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.accounts.List(ctx)
}

func (s *RegistrationService) ListAssets(ctx context.Context) ([]models.Asset, error) {
	return s.assets.List(ctx)
}

func (s *RegistrationService) GetAccount(ctx context.Context, address string) (*models.Account, error) {
	return s.accounts.GetByAddress(ctx, address)
}

func (s *RegistrationService) GetAsset(ctx context.Context, hash string) (*models.Asset, error) {
	return s.assets.GetByHash(ctx, hash)
}

// History returns the saga audit trail of a record, newest first.
func (s *RegistrationService) History(ctx context.Context, kind, key string, limit, offset int) ([]models.AuditLog, error) {
	return s.auditRepo.GetByEntity(ctx, kind, key, limit, offset)
}

// sagaRecord binds the saga steps to one record kind.
type sagaRecord struct {
	kind  string
	key   string
	owner string
	slot  uint64
	value uint64
	uri   string

	create func(ctx context.Context) error
	link   func(ctx context.Context, tokenID string) error
	remove func(ctx context.Context) error
	// setStatus is nil for records without an upload status.
	setStatus func(ctx context.Context, status string) error
}

type saga struct {
	svc   *RegistrationService
	rec   *sagaRecord
	state string
	log   *zap.Logger
}

func (s *RegistrationService) run(ctx context.Context, rec sagaRecord) (*models.Registration, error) {
	sg := &saga{
		svc: s,
		rec: &rec,
		log: s.log.With(zap.String("kind", rec.kind), zap.String("key", rec.key)),
	}

	// 1. Pending record. The store decides uniqueness.
	if err := rec.create(ctx); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			sg.log.Info("registration rejected, record exists")
			return nil, &DuplicateError{Kind: rec.kind, Key: rec.key}
		}
		return nil, fmt.Errorf("create %s record: %w", rec.kind, err)
	}
	sg.state = models.SagaStateCreated
	sg.audit(ctx, "registration_created", map[string]any{"owner": rec.owner, "slot": rec.slot, "value": rec.value})

	// Writes after the mint must not be dropped because the caller went away.
	bg := context.WithoutCancel(ctx)

	// 2. Mint
	minted, err := s.issuer.Mint(ctx, rec.owner, rec.slot, rec.value)
	if err != nil {
		return nil, sg.compensate(bg, err)
	}
	if err := sg.advance(bg, models.SagaStateMinted, map[string]any{
		"token_id": minted.TokenID, "tx_hash": minted.TxHash, "degraded": minted.Degraded,
	}); err != nil {
		return nil, err
	}
	if minted.Degraded {
		if s.cfg.RejectDegradedMint {
			sg.log.Warn("token id not recovered, rolling back; the transaction may still hold a token",
				zap.String("tx_hash", minted.TxHash))
			return nil, sg.compensate(bg, fmt.Errorf("%w: tx %s", chain.ErrDegradedTokenID, minted.TxHash))
		}
		sg.log.Warn("linking timestamp token id", zap.String("token_id", minted.TokenID))
	}

	// 3. Link
	if err := rec.link(bg, minted.TokenID); err != nil {
		sg.log.Error("link failed, token left unlinked", zap.String("token_id", minted.TokenID), zap.Error(err))
		sg.audit(bg, "registration_link_failed", map[string]any{"token_id": minted.TokenID, "error": err.Error()})
		sg.publish(bg, events.EventLinkFailed, map[string]any{"token_id": minted.TokenID, "error": err.Error()})
		return nil, &SagaError{
			Kind: rec.kind, Key: rec.key, State: sg.state, Step: StepLink,
			TokenID: minted.TokenID, Err: err,
		}
	}
	if err := sg.advance(bg, models.SagaStateLinked, map[string]any{"token_id": minted.TokenID}); err != nil {
		return nil, err
	}

	// 4. Metadata. No compensation from here on.
	uriRes, err := s.issuer.SetTokenURI(ctx, minted.TokenID, rec.uri)
	if err != nil {
		sg.log.Error("metadata write failed, record kept", zap.String("token_id", minted.TokenID), zap.Error(err))
		if rec.setStatus != nil {
			if serr := rec.setStatus(bg, models.UploadStatusFailed); serr != nil {
				sg.log.Error("upload status not updated", zap.Error(serr))
			}
		}
		sg.audit(bg, "registration_metadata_failed", map[string]any{"token_id": minted.TokenID, "error": err.Error()})
		sg.publish(bg, events.EventMetadataWriteFailed, map[string]any{"token_id": minted.TokenID, "error": err.Error()})
		return nil, &SagaError{
			Kind: rec.kind, Key: rec.key, State: sg.state, Step: StepSetTokenURI,
			TokenID: minted.TokenID, Err: err,
		}
	}
	if uriRes.Skipped {
		sg.log.Warn("metadata write skipped", zap.String("token_id", minted.TokenID))
	}
	if err := sg.advance(bg, models.SagaStateURISet, map[string]any{"tx_ref": uriRes.TxRef, "skipped": uriRes.Skipped}); err != nil {
		return nil, err
	}

	// 5. Done
	if rec.setStatus != nil {
		if err := rec.setStatus(bg, models.UploadStatusCompleted); err != nil {
			sg.log.Error("upload status not updated", zap.Error(err))
		}
	}
	if err := sg.advance(bg, models.SagaStateDone, nil); err != nil {
		return nil, err
	}

	reg := &models.Registration{
		Kind:         rec.kind,
		Address:      rec.owner,
		Key:          rec.key,
		TokenID:      minted.TokenID,
		Slot:         rec.slot,
		Value:        rec.value,
		URI:          rec.uri,
		MintTxHash:   minted.TxHash,
		MintDegraded: minted.Degraded,
		URITxRef:     uriRes.TxRef,
		URISkipped:   uriRes.Skipped,
		State:        sg.state,
	}
	sg.publish(bg, events.EventRegistrationCompleted, map[string]any{
		"token_id": reg.TokenID,
		"slot":     reg.Slot,
		"value":    reg.Value,
		"tx_hash":  reg.MintTxHash,
	})
	return reg, nil
}

// compensate deletes the record after a failed mint.
func (sg *saga) compensate(ctx context.Context, cause error) error {
	sagaErr := &SagaError{
		Kind:  sg.rec.kind,
		Key:   sg.rec.key,
		State: sg.state,
		Step:  StepMint,
		Err:   cause,
	}

	sg.log.Error("mint failed, deleting record", zap.Error(cause))
	if err := sg.rec.remove(ctx); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		sg.log.Error("compensation failed, pending record left behind", zap.Error(err))
		sg.audit(ctx, "registration_compensation_failed", map[string]any{"error": err.Error()})
		return sagaErr
	}

	if err := sg.advance(ctx, models.SagaStateRolledBack, map[string]any{"error": cause.Error()}); err != nil {
		return err
	}
	sagaErr.State = sg.state
	sagaErr.Compensated = true
	sg.publish(ctx, events.EventRegistrationRolledBack, map[string]any{"error": cause.Error()})
	return sagaErr
}

// advance validates and records a state transition with audit logging.
func (sg *saga) advance(ctx context.Context, to string, meta map[string]any) error {
	if !models.IsValidSagaTransition(sg.state, to) {
		return fmt.Errorf("invalid saga transition from %s to %s", sg.state, to)
	}
	from := sg.state
	sg.state = to

	sg.log.Info("registration state changed", zap.String("from", from), zap.String("to", to))
	if meta == nil {
		meta = map[string]any{}
	}
	meta["old_state"] = from
	meta["new_state"] = to
	sg.audit(ctx, fmt.Sprintf("registration_%s_to_%s", from, to), meta)
	return nil
}

func (sg *saga) audit(ctx context.Context, action string, meta map[string]any) {
	_ = sg.svc.auditRepo.Log(ctx, models.AuditLog{
		ActorType:  "system",
		Action:     action,
		EntityType: sg.rec.kind,
		EntityKey:  sg.rec.key,
		Meta:       meta,
	})
}

func (sg *saga) publish(ctx context.Context, eventType string, payload map[string]any) {
	payload["kind"] = sg.rec.kind
	payload["key"] = sg.rec.key
	payload["owner"] = sg.rec.owner
	payload["state"] = sg.state
	_ = sg.svc.publisher.Publish(ctx, events.StreamRegistrations, events.Event{
		Type:    eventType,
		Payload: payload,
	})
}
