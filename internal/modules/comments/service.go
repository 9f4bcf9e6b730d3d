package comments

import (
	"context"
	"errors"
	"log"
	"strings"

	"taskhub/internal/domain"
	"taskhub/internal/events"
	"taskhub/internal/policy"
	"taskhub/internal/repository"
)

const (
	// A comment under spamMinWords words containing more than
	// spamMaxLinks occurrences of "http" is rejected as spam.
	spamMinWords = 5
	spamMaxLinks = 1

	// Edits have a lower floor than the spam check applies at creation.
	editMinWords = 3
)

type CommentRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Comment) error
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
	Update(ctx context.Context, c *domain.Comment) error
	Delete(ctx context.Context, id int64) error
	ListForTarget(ctx context.Context, ref domain.TargetRef, limit, offset int) ([]domain.Comment, int64, error)
}

type targetResolver interface {
	ResolveTarget(ctx context.Context, ref domain.TargetRef) (any, error)
}

type authorizer interface {
	Authorize(ctx context.Context, sub policy.Subject, action policy.Action, resource any) policy.Decision
}

type emitter interface {
	Emit(ctx context.Context, t events.Type, payload any) error
}

type Service struct {
	comments CommentRepositoryInterface
	resolver targetResolver
	authz    authorizer
	emitter  emitter
}

func NewService(comments CommentRepositoryInterface, resolver targetResolver, authz authorizer, em emitter) *Service {
	return &Service{comments: comments, resolver: resolver, authz: authz, emitter: em}
}

// Create attaches a comment to a task or project. Link-heavy short
// content is rejected before anything is stored.
func (s *Service) Create(ctx context.Context, sub policy.Subject, ref domain.TargetRef, content string) (*CommentResponse, error) {
	if !domain.CommentableKinds[ref.Kind] {
		return nil, ErrInvalidTarget
	}
	if _, err := s.resolver.ResolveTarget(ctx, ref); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionAddComment, nil); !d.Allowed {
		return nil, ErrForbidden
	}

	if isSpam(content) {
		return nil, ErrSpam
	}

	comment := &domain.Comment{
		Content: content,
		UserID:  sub.ID,
		Target:  ref,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	// Notifications only follow task comments; project discussion has
	// no single recipient.
	if ref.Kind == domain.KindTask {
		if err := s.emitter.Emit(ctx, events.TypeCommentCreated, events.CommentCreated{
			CommentID: comment.ID,
			TaskID:    ref.ID,
		}); err != nil {
			log.Printf("emit comment.created for id=%d failed: %v", comment.ID, err)
		}
	}

	resp := toResponse(comment)
	return &resp, nil
}

// Update edits a comment's content. Submitting unchanged content is a
// no-op that skips every further check; the returned flag tells the
// caller whether anything was written.
func (s *Service) Update(ctx context.Context, sub policy.Subject, id int64, content string) (*CommentResponse, bool, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionUpdateComment, comment); !d.Allowed {
		return nil, false, ErrForbidden
	}

	if content == comment.Content {
		resp := toResponse(comment)
		return &resp, false, nil
	}

	if wordCount(content) < editMinWords {
		return nil, false, ErrTooShort
	}

	comment.Content = content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, false, err
	}

	resp := toResponse(comment)
	return &resp, true, nil
}

func (s *Service) Delete(ctx context.Context, sub policy.Subject, id int64) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if d := s.authz.Authorize(ctx, sub, policy.ActionDeleteComment, comment); !d.Allowed {
		return ErrForbidden
	}
	return s.comments.Delete(ctx, id)
}

// ListForTarget returns comments on a target, newest first. Reading
// comments needs no permission grant.
func (s *Service) ListForTarget(ctx context.Context, ref domain.TargetRef, limit, offset int) ([]CommentResponse, int64, error) {
	if !domain.CommentableKinds[ref.Kind] {
		return nil, 0, ErrInvalidTarget
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	comments, total, err := s.comments.ListForTarget(ctx, ref, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, toResponse(&comments[i]))
	}
	return out, total, nil
}

// isSpam flags short link-heavy content: fewer than five words with
// more than one "http" occurrence. Long posts with many links pass, as
// does a short post with a single link.
func isSpam(content string) bool {
	return wordCount(content) < spamMinWords &&
		strings.Count(strings.ToLower(content), "http") > spamMaxLinks
}

func wordCount(content string) int {
	return len(strings.Fields(content))
}
