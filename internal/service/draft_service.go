package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDraftNotFound = errors.New("draft session not found")
	ErrWrongPhase    = errors.New("operation not valid in current phase")
)

// IncompleteDraftError names the required phase-1 fields still
// missing; it is raised locally, before any network call.
type IncompleteDraftError struct {
	Fields []string
}

func (e *IncompleteDraftError) Error() string {
	return fmt.Sprintf("draft incomplete, missing fields: %s", strings.Join(e.Fields, ", "))
}

// DraftSession is one open wizard run. Phases advance forward on
// completion; the summary screen can send the session back to any
// earlier phase for editing.
type DraftSession struct {
	ID            string              `json:"id"`
	Phase         models.DraftPhase   `json:"phase"`
	Draft         models.ProductDraft `json:"draft"`
	EditProductID string              `json:"edit_product_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`

	// set when the session was sent back from the summary screen,
	// so re-completing a phase returns there instead of advancing
	returnToSummary bool
}

// snapshot copies the session so callers can read and marshal it
// after the service lock is released. Must be called under ds.mu.
func (session *DraftSession) snapshot() *DraftSession {
	copied := *session
	return &copied
}

// DraftService owns the admin product wizard sessions. Drafts live in
// memory only: closing the wizard discards them, a failed submission
// retains them for retry.
type DraftService struct {
	products ProductAPI
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*DraftSession
}

// NewDraftService creates a new draft service
func NewDraftService(products ProductAPI) *DraftService {
	return &DraftService{
		products: products,
		logger:   util.GetLogger(),
		sessions: make(map[string]*DraftSession),
	}
}

// StartCreate opens a fresh creation wizard.
func (ds *DraftService) StartCreate(ctx context.Context) *DraftSession {
	session := &DraftSession{
		ID:        uuid.New().String(),
		Phase:     models.DraftPhase1,
		CreatedAt: time.Now(),
	}

	ds.mu.Lock()
	ds.sessions[session.ID] = session
	out := session.snapshot()
	ds.mu.Unlock()

	util.DraftsStartedTotal.WithLabelValues("create").Inc()
	ds.logger.Info("Draft session opened", zap.String("draft_id", session.ID))
	return out
}

// StartEdit opens the wizard seeded from an existing product's
// current fields, resources and discount associations.
func (ds *DraftService) StartEdit(ctx context.Context, productID string) (*DraftSession, error) {
	detail, err := ds.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product for editing: %w", err)
	}

	session := &DraftSession{
		ID:            uuid.New().String(),
		Phase:         models.DraftPhase1,
		EditProductID: productID,
		CreatedAt:     time.Now(),
	}
	session.Draft.SeedFromItem(detail.Item, detail.Resources, detail.DiscountIDs)

	ds.mu.Lock()
	ds.sessions[session.ID] = session
	out := session.snapshot()
	ds.mu.Unlock()

	util.DraftsStartedTotal.WithLabelValues("edit").Inc()
	ds.logger.Info("Draft session opened for edit",
		zap.String("draft_id", session.ID),
		zap.String("product_id", productID))
	return out, nil
}

// Get returns a copy of the session, or ErrDraftNotFound.
func (ds *DraftService) Get(draftID string) (*DraftSession, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	session, ok := ds.sessions[draftID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return session.snapshot(), nil
}

// advance moves the session forward after a phase completes, or back
// to the summary when the phase was re-opened from there.
func (session *DraftSession) advance(next models.DraftPhase) {
	if session.returnToSummary {
		session.returnToSummary = false
		session.Phase = models.DraftPhaseSummary
		return
	}
	session.Phase = next
}

// CompletePhase1 merges the phase-1 fields into the draft and
// advances. Only the submitted fields change; everything written by
// other phases is preserved.
func (ds *DraftService) CompletePhase1(draftID string, fields models.ProductPhase1) (*DraftSession, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	session, ok := ds.sessions[draftID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if session.Phase != models.DraftPhase1 {
		return nil, ErrWrongPhase
	}

	session.Draft.ApplyPhase1(fields)
	if missing := session.Draft.MissingPhase1Fields(); len(missing) > 0 {
		return nil, &IncompleteDraftError{Fields: missing}
	}

	session.advance(models.DraftPhase2)
	return session.snapshot(), nil
}

// CompletePhase2 merges the resource list and advances.
func (ds *DraftService) CompletePhase2(draftID string, resources []models.ProductResource) (*DraftSession, error) {
	return ds.completePhase2(draftID, resources)
}

// SkipPhase2 commits an empty resource list and advances exactly as
// completion would.
func (ds *DraftService) SkipPhase2(draftID string) (*DraftSession, error) {
	return ds.completePhase2(draftID, []models.ProductResource{})
}

func (ds *DraftService) completePhase2(draftID string, resources []models.ProductResource) (*DraftSession, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	session, ok := ds.sessions[draftID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if session.Phase != models.DraftPhase2 {
		return nil, ErrWrongPhase
	}

	session.Draft.SetResources(resources)
	session.advance(models.DraftPhase3)
	return session.snapshot(), nil
}

// CompletePhase3 merges the discount selection and advances to the
// summary.
func (ds *DraftService) CompletePhase3(draftID string, discountIDs []string) (*DraftSession, error) {
	return ds.completePhase3(draftID, discountIDs)
}

// SkipPhase3 commits an empty discount selection and advances exactly
// as completion would.
func (ds *DraftService) SkipPhase3(draftID string) (*DraftSession, error) {
	return ds.completePhase3(draftID, []string{})
}

func (ds *DraftService) completePhase3(draftID string, discountIDs []string) (*DraftSession, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	session, ok := ds.sessions[draftID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if session.Phase != models.DraftPhase3 {
		return nil, ErrWrongPhase
	}

	session.Draft.SetDiscountIDs(discountIDs)
	session.advance(models.DraftPhaseSummary)
	return session.snapshot(), nil
}

// BackTo re-opens an earlier phase from the summary screen,
// pre-populated from the current draft. Re-completing it returns to
// the summary.
func (ds *DraftService) BackTo(draftID string, phase models.DraftPhase) (*DraftSession, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	session, ok := ds.sessions[draftID]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if session.Phase != models.DraftPhaseSummary {
		return nil, ErrWrongPhase
	}

	switch phase {
	case models.DraftPhase1, models.DraftPhase2, models.DraftPhase3:
	default:
		return nil, fmt.Errorf("cannot go back to %s", phase)
	}

	session.Phase = phase
	session.returnToSummary = true
	return session.snapshot(), nil
}

// Submit converts the completed draft into one creation (or update)
// request. On failure the session is retained so the admin retries
// without re-entering anything.
func (ds *DraftService) Submit(ctx context.Context, draftID string) (*models.CatalogItem, error) {
	ctx, span := util.StartSpan(ctx, "DraftService.Submit")
	defer span.End()

	ds.mu.Lock()
	session, ok := ds.sessions[draftID]
	if !ok {
		ds.mu.Unlock()
		return nil, ErrDraftNotFound
	}
	if session.Phase != models.DraftPhaseSummary {
		ds.mu.Unlock()
		return nil, ErrWrongPhase
	}
	if missing := session.Draft.MissingPhase1Fields(); len(missing) > 0 {
		ds.mu.Unlock()
		return nil, &IncompleteDraftError{Fields: missing}
	}
	draft := session.Draft
	editProductID := session.EditProductID
	ds.mu.Unlock()

	var (
		item *models.CatalogItem
		err  error
	)
	if editProductID != "" {
		item, err = ds.products.UpdateProduct(ctx, editProductID, &draft)
	} else {
		item, err = ds.products.CreateProductComplete(ctx, &draft)
	}
	if err != nil {
		util.DraftsSubmitFailedTotal.Inc()
		ds.logger.Warn("Draft submission failed, draft retained",
			zap.String("draft_id", draftID),
			zap.Error(err))
		return nil, fmt.Errorf("draft submission failed: %w", err)
	}

	ds.mu.Lock()
	delete(ds.sessions, draftID)
	ds.mu.Unlock()

	util.DraftsSubmittedTotal.Inc()
	ds.logger.Info("Draft submitted",
		zap.String("draft_id", draftID),
		zap.String("product_id", item.ID))
	return item, nil
}

// Close discards the draft entirely.
func (ds *DraftService) Close(draftID string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.sessions, draftID)
}

// ListBrands serves the wizard's brand picker.
func (ds *DraftService) ListBrands(ctx context.Context) ([]Ref, error) {
	return ds.products.ListBrands(ctx)
}

// ListCategories serves the wizard's category picker.
func (ds *DraftService) ListCategories(ctx context.Context) ([]Ref, error) {
	return ds.products.ListCategories(ctx)
}

// ListDiscounts serves the wizard's discount picker.
func (ds *DraftService) ListDiscounts(ctx context.Context) ([]Ref, error) {
	return ds.products.ListDiscounts(ctx)
}
