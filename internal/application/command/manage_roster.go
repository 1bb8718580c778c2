// Package command contains the write operations: editing the tracked roster.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/cfboard/cfboard/internal/domain/shared"
	"github.com/cfboard/cfboard/internal/domain/student"
	"github.com/cfboard/cfboard/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MANAGE ROSTER COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// AddHandleCommand starts tracking a handle.
type AddHandleCommand struct {
	// Handle as typed by the operator.
	Handle string

	// SkipVerify stores the handle without asking the judge whether it
	// exists.
	SkipVerify bool
}

// RemoveHandleCommand stops tracking a handle.
type RemoveHandleCommand struct {
	Handle string
}

// ProfileLookup resolves a handle against the judge.
type ProfileLookup interface {
	Profile(ctx context.Context, handle student.Handle) (student.Profile, error)
}

// ManageRosterHandler handles roster edits.
type ManageRosterHandler struct {
	directory student.Directory
	profiles  ProfileLookup
	logger    *logger.Logger
}

// NewManageRosterHandler creates the handler. profiles may be nil, in which
// case handles are stored as typed.
func NewManageRosterHandler(directory student.Directory, profiles ProfileLookup, log *logger.Logger) *ManageRosterHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ManageRosterHandler{
		directory: directory,
		profiles:  profiles,
		logger:    log.With(logger.Component("manage_roster")),
	}
}

// Add validates the handle, resolves its canonical case and stores it.
func (h *ManageRosterHandler) Add(ctx context.Context, cmd AddHandleCommand) (student.Handle, error) {
	handle, err := student.NewHandle(cmd.Handle)
	if err != nil {
		return "", err
	}

	if h.profiles != nil && !cmd.SkipVerify {
		profile, err := h.profiles.Profile(ctx, handle)
		if err != nil {
			return "", fmt.Errorf("verify %s: %w", handle, err)
		}
		handle = profile.Handle
	}

	if err := h.directory.Add(ctx, handle); err != nil {
		return "", err
	}

	h.logger.Info("handle added", logger.Handle(handle.String()))
	return handle, nil
}

// Remove stops tracking a handle.
func (h *ManageRosterHandler) Remove(ctx context.Context, cmd RemoveHandleCommand) error {
	handle, err := student.NewHandle(cmd.Handle)
	if err != nil {
		return err
	}

	if err := h.directory.Remove(ctx, handle); err != nil {
		if errors.Is(err, shared.ErrHandleNotFound) {
			return h.notTracked(ctx, handle, err)
		}
		return err
	}

	h.logger.Info("handle removed", logger.Handle(handle.String()))
	return nil
}

// Importer bulk-loads handles into the directory.
type Importer interface {
	Import(ctx context.Context, handles []student.Handle) (int, error)
}

// Import copies the handles of from into the directory without verifying
// them. It returns how many were new.
func (h *ManageRosterHandler) Import(ctx context.Context, from student.Roster) (int, error) {
	importer, ok := h.directory.(Importer)
	if !ok {
		return 0, fmt.Errorf("roster does not support bulk import")
	}
	handles, err := from.Handles(ctx)
	if err != nil {
		return 0, err
	}
	added, err := importer.Import(ctx, handles)
	if err != nil {
		return 0, err
	}
	h.logger.Info("roster imported", logger.Int("read", len(handles)), logger.Int("added", added))
	return added, nil
}

// List returns the tracked handles in display order.
func (h *ManageRosterHandler) List(ctx context.Context) ([]student.Handle, error) {
	return h.directory.Handles(ctx)
}

// maxSuggestions caps the "did you mean" list.
const maxSuggestions = 3

// notTracked decorates a not-found error with tracked handles that look
// like the one typed.
func (h *ManageRosterHandler) notTracked(ctx context.Context, handle student.Handle, err error) error {
	tracked, listErr := h.directory.Handles(ctx)
	if listErr != nil {
		return err
	}
	suggestions := Suggest(handle.String(), tracked)
	if len(suggestions) == 0 {
		return err
	}
	return shared.WrapError("student", "Remove", shared.ErrNotFound,
		fmt.Sprintf("%s is not tracked, did you mean %s?", handle, strings.Join(suggestions, " or ")), err)
}

// Suggest returns up to three tracked handles that fuzzily contain typed,
// closest first.
func Suggest(typed string, tracked []student.Handle) []string {
	names := make([]string, len(tracked))
	for i, t := range tracked {
		names[i] = t.String()
	}

	ranks := fuzzy.RankFindFold(typed, names)
	sort.Sort(ranks)

	out := make([]string, 0, maxSuggestions)
	for _, r := range ranks {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, r.Target)
	}
	return out
}
