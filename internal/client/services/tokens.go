package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keybox/internal/client/authz"
	"github.com/dmitrijs2005/keybox/internal/common"
	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/models"
	"github.com/dmitrijs2005/keybox/internal/otp"
)

// Code is the current one-time code of a token.
type Code struct {
	Secret      models.Secret
	Code        string
	Remaining   float64
	SecondsLeft int
}

type TokenService struct {
	lifecycle[models.Secret]
	gen *otp.Generator
}

func NewTokenService(
	store RecordStore[models.Secret],
	trash TrashLedger[models.Secret],
	events EventLog,
	auth authz.Authorizer,
	gen *otp.Generator,
	l logging.Logger,
) *TokenService {
	return &TokenService{
		lifecycle: lifecycle[models.Secret]{
			store:    store,
			trash:    trash,
			events:   events,
			auth:     auth,
			logger:   l.With("module", "tokens"),
			noun:     "Token",
			describe: describeSecret,
		},
		gen: gen,
	}
}

func describeSecret(s models.Secret) string {
	return fmt.Sprintf("%s (%s)", s.Issuer, s.AccountName)
}

// List returns the tokens whose issuer or account contains query.
func (s *TokenService) List(ctx context.Context, query string) []models.Secret {
	var out []models.Secret
	for _, it := range s.store.Load(ctx) {
		if it.Matches(query) {
			out = append(out, it)
		}
	}
	return out
}

func (s *TokenService) Find(ctx context.Context, ref string) (models.Secret, error) {
	return s.find(ctx, ref)
}

func validateSecret(secret string) error {
	if secret == "" {
		return common.ErrorEmptySecret
	}
	if _, err := otp.DecodeBase32(secret); err != nil {
		return fmt.Errorf("secret: %w", err)
	}
	return nil
}

// Add stores a new token with default period and digits.
func (s *TokenService) Add(ctx context.Context, issuer, account, secret string) (models.Secret, error) {
	rec := models.NewSecret(issuer, account, secret)
	if err := validateSecret(rec.Secret); err != nil {
		return models.Secret{}, err
	}
	return rec, s.add(ctx, rec)
}

// ImportURI adds the token described by an otpauth:// provisioning URI.
func (s *TokenService) ImportURI(ctx context.Context, uri string) (models.Secret, error) {
	k, err := otp.ParseURI(strings.TrimSpace(uri))
	if err != nil {
		return models.Secret{}, err
	}

	rec := models.SecretFromKey(k)
	if err := validateSecret(rec.Secret); err != nil {
		return models.Secret{}, err
	}
	return rec, s.add(ctx, rec)
}

// Update replaces the stored token with the same ID; the previous version
// goes to trash.
func (s *TokenService) Update(ctx context.Context, rec models.Secret) (string, error) {
	rec.Secret = otp.NormalizeSecret(rec.Secret)
	if err := validateSecret(rec.Secret); err != nil {
		return "", err
	}
	return s.update(ctx, rec)
}

// Delete removes the token and returns the trash entry holding it.
func (s *TokenService) Delete(ctx context.Context, ref string) (string, error) {
	return s.delete(ctx, ref)
}

func (s *TokenService) Restore(ctx context.Context, trashRef string) (models.Secret, error) {
	return s.restore(ctx, trashRef)
}

// RestoreIfPresent restores trashID when it belongs to the token trash.
func (s *TokenService) RestoreIfPresent(ctx context.Context, trashID string) (bool, error) {
	return s.restoreIfPresent(ctx, trashID)
}

func (s *TokenService) Trash(ctx context.Context) []models.TrashEntry[models.Secret] {
	return s.trash.List(ctx)
}

func (s *TokenService) code(rec models.Secret) Code {
	return Code{
		Secret:      rec,
		Code:        s.gen.CodeOrFallback(rec.Secret, rec.Period, rec.Digits),
		Remaining:   s.gen.Remaining(rec.Period),
		SecondsLeft: s.gen.SecondsLeft(rec.Period),
	}
}

// Code computes the current code of one token. A malformed secret yields
// the all-zero fallback code.
func (s *TokenService) Code(ctx context.Context, ref string) (Code, error) {
	rec, err := s.find(ctx, ref)
	if err != nil {
		return Code{}, err
	}
	return s.code(rec), nil
}

// Codes computes current codes for every token matching query.
func (s *TokenService) Codes(ctx context.Context, query string) []Code {
	list := s.List(ctx, query)
	out := make([]Code, 0, len(list))
	for _, rec := range list {
		out = append(out, s.code(rec))
	}
	return out
}

// Reveal returns the Base32 secret after authorization.
func (s *TokenService) Reveal(ctx context.Context, ref string) (string, error) {
	rec, err := s.find(ctx, ref)
	if err != nil {
		return "", err
	}

	var secret string
	err = authz.Guard(ctx, s.auth, "reveal secret", func() error {
		secret = rec.Secret
		s.record(ctx, models.EventView, "Viewed Secret", "Viewed secret for account: "+describeSecret(rec), "")
		return nil
	})
	return secret, err
}

// ExportURI returns the otpauth:// URI of a token after authorization.
func (s *TokenService) ExportURI(ctx context.Context, ref string) (string, error) {
	rec, err := s.find(ctx, ref)
	if err != nil {
		return "", err
	}

	var uri string
	err = authz.Guard(ctx, s.auth, "export token", func() error {
		uri = otp.BuildURI(rec.Key())
		s.record(ctx, models.EventView, "Exported Token", "Exported provisioning URI for account: "+describeSecret(rec), "")
		return nil
	})
	return uri, err
}

// Reset removes every token. Trash is kept.
func (s *TokenService) Reset(ctx context.Context) error {
	return s.reset(ctx)
}
