package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keybox/internal/client/authz"
	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/models"
	"github.com/dmitrijs2005/keybox/internal/timex"
)

type AccountService struct {
	lifecycle[models.VaultEntry]
	clock timex.Clock
}

func NewAccountService(
	store RecordStore[models.VaultEntry],
	trash TrashLedger[models.VaultEntry],
	events EventLog,
	auth authz.Authorizer,
	clock timex.Clock,
	l logging.Logger,
) *AccountService {
	if clock == nil {
		clock = timex.SystemClock()
	}
	return &AccountService{
		lifecycle: lifecycle[models.VaultEntry]{
			store:    store,
			trash:    trash,
			events:   events,
			auth:     auth,
			logger:   l.With("module", "accounts"),
			noun:     "Account",
			describe: describeEntry,
		},
		clock: clock,
	}
}

func describeEntry(e models.VaultEntry) string {
	return fmt.Sprintf("%s (%s)", e.Title, e.Account)
}

// List filters by query and, when category is non-empty, by category.
func (s *AccountService) List(ctx context.Context, query string, category models.Category) []models.VaultEntry {
	var out []models.VaultEntry
	for _, it := range s.store.Load(ctx) {
		if category != "" && it.Category != category {
			continue
		}
		if it.Matches(query) {
			out = append(out, it)
		}
	}
	return out
}

func (s *AccountService) Find(ctx context.Context, ref string) (models.VaultEntry, error) {
	return s.find(ctx, ref)
}

// Add stores a new login. An empty category becomes Other.
func (s *AccountService) Add(ctx context.Context, e models.VaultEntry) (models.VaultEntry, error) {
	e.ID = models.NewID()
	e.Title = strings.TrimSpace(e.Title)
	e.Account = strings.TrimSpace(e.Account)
	if e.Category == "" {
		e.Category = models.CategoryOther
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now().UTC()
	}
	return e, s.add(ctx, e)
}

func (s *AccountService) Update(ctx context.Context, e models.VaultEntry) (string, error) {
	return s.update(ctx, e)
}

func (s *AccountService) Delete(ctx context.Context, ref string) (string, error) {
	return s.delete(ctx, ref)
}

func (s *AccountService) Restore(ctx context.Context, trashRef string) (models.VaultEntry, error) {
	return s.restore(ctx, trashRef)
}

func (s *AccountService) RestoreIfPresent(ctx context.Context, trashID string) (bool, error) {
	return s.restoreIfPresent(ctx, trashID)
}

func (s *AccountService) Trash(ctx context.Context) []models.TrashEntry[models.VaultEntry] {
	return s.trash.List(ctx)
}

// Reveal returns the stored password after authorization.
func (s *AccountService) Reveal(ctx context.Context, ref string) (string, error) {
	rec, err := s.find(ctx, ref)
	if err != nil {
		return "", err
	}

	var password string
	err = authz.Guard(ctx, s.auth, "reveal password", func() error {
		password = rec.Password
		s.record(ctx, models.EventView, "Viewed Password", "Viewed password for account: "+describeEntry(rec), "")
		return nil
	})
	return password, err
}

func (s *AccountService) Reset(ctx context.Context) error {
	return s.reset(ctx)
}
