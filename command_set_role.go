package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SetRoleMessage requests a role change for an existing user. Role changes
// take effect on the next token issue or refresh, not on live sessions.
type SetRoleMessage struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

func (e SetRoleMessage) Type() string { return "user.set_role" }

type SetRoleHandler struct {
	repo RepositoryManager
	sink ActivitySink
}

func NewSetRoleHandler(repo RepositoryManager, sink ActivitySink) *SetRoleHandler {
	return &SetRoleHandler{
		repo: repo,
		sink: normalizeActivitySink(sink),
	}
}

func (h *SetRoleHandler) Execute(ctx context.Context, event SetRoleMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during role change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SetRoleHandler) execute(ctx context.Context, event SetRoleMessage) error {
	if !event.Role.IsValid() {
		return goerrors.New("unknown role: "+string(event.Role), goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var updated *User
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().SetRoleTx(ctx, tx, event.UserID, event.Role)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "could not change user role")
		}
		updated = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "role change transaction failed")
	}

	_ = h.sink.Record(ctx, ActivityEvent{
		EventType: ActivityEventRoleChanged,
		Actor:     ActorRef{Type: "admin"},
		UserID:    updated.ID.String(),
		Metadata: map[string]any{
			"role": string(event.Role),
		},
		OccurredAt: time.Now(),
	})

	return nil
}
