// internal/app/recipients.go
package app

import (
	"context"
	"errors"

	"quest_notifier/internal/domain/user"
	idb "quest_notifier/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// PlaceholderName stands in for a user whose display name cannot be read.
const PlaceholderName = "誰か"

// ResolutionStatus classifies the outcome of a token lookup.
type ResolutionStatus int

const (
	ResolutionResolved ResolutionStatus = iota
	ResolutionSkipped                   // user exists but cannot be notified, or does not exist
	ResolutionFailed                    // the store could not answer
)

func (s ResolutionStatus) String() string {
	switch s {
	case ResolutionResolved:
		return "resolved"
	case ResolutionSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Resolution is the result of resolving one user to a push destination.
type Resolution struct {
	UserID      string
	Token       string
	DisplayName string
	Status      ResolutionStatus
	SkipReason  string
	Err         error
}

// TokenResolver looks up push tokens and display names in the user store.
type TokenResolver struct {
	users  user.Repository
	logger *logrus.Entry
}

func NewTokenResolver(users user.Repository, logger *logrus.Entry) *TokenResolver {
	return &TokenResolver{users: users, logger: logger}
}

// Resolve never returns an error: a missing user or token is a skip, a store
// error is reported as ResolutionFailed for the caller to log and move on.
func (r *TokenResolver) Resolve(ctx context.Context, userID string) Resolution {
	res := Resolution{UserID: userID, DisplayName: PlaceholderName}
	if userID == "" {
		res.Status = ResolutionSkipped
		res.SkipReason = "empty user id"
		return res
	}

	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, idb.ErrUserNotFound) {
			res.Status = ResolutionSkipped
			res.SkipReason = "user not found"
			return res
		}
		res.Status = ResolutionFailed
		res.Err = err
		return res
	}

	if u.Character != "" {
		res.DisplayName = u.Character
	}
	if !u.HasToken() {
		res.Status = ResolutionSkipped
		res.SkipReason = "no push token"
		return res
	}
	res.Token = u.FCMToken
	res.Status = ResolutionResolved
	return res
}

// DisplayName returns the user's character name, or PlaceholderName when the
// id is empty, the user is unknown, or the lookup fails.
func (r *TokenResolver) DisplayName(ctx context.Context, userID string) string {
	if userID == "" {
		return PlaceholderName
	}
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, idb.ErrUserNotFound) {
			r.logger.WithError(err).WithField("user_id", userID).Error("Error getting user display name")
		}
		return PlaceholderName
	}
	if u.Character == "" {
		return PlaceholderName
	}
	return u.Character
}

// RecipientSetBuilder turns an audience of user ids into push tokens.
type RecipientSetBuilder struct {
	resolver    *TokenResolver
	concurrency int
	logger      *logrus.Entry
}

func NewRecipientSetBuilder(resolver *TokenResolver, concurrency int, logger *logrus.Entry) *RecipientSetBuilder {
	return &RecipientSetBuilder{resolver: resolver, concurrency: concurrency, logger: logger}
}

// Build resolves every candidate except excludeUserID and returns the tokens
// in candidate order. Each id yields at most one token and a token shared by
// several users is returned once. Candidates that cannot be resolved are
// omitted; the result may be empty.
func (b *RecipientSetBuilder) Build(ctx context.Context, candidateUserIDs []string, excludeUserID string) []string {
	ids := make([]string, 0, len(candidateUserIDs))
	seen := make(map[string]struct{}, len(candidateUserIDs))
	for _, id := range candidateUserIDs {
		if id == excludeUserID && excludeUserID != "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	resolutions := make([]Resolution, len(ids))
	forEach(ctx, b.concurrency, ids, func(ctx context.Context, i int, id string) {
		resolutions[i] = b.resolver.Resolve(ctx, id)
	})

	tokens := make([]string, 0, len(resolutions))
	seenTokens := make(map[string]struct{}, len(resolutions))
	for _, res := range resolutions {
		entry := b.logger.WithField("user_id", res.UserID)
		switch res.Status {
		case ResolutionResolved:
			if _, dup := seenTokens[res.Token]; dup {
				continue
			}
			seenTokens[res.Token] = struct{}{}
			tokens = append(tokens, res.Token)
			entry.Debug("Found push token for user")
		case ResolutionSkipped:
			entry.WithField("reason", res.SkipReason).Debug("Skipping recipient")
		case ResolutionFailed:
			entry.WithError(res.Err).Error("Error getting push token for user")
		}
	}
	return tokens
}
