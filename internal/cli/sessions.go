package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"toolview/internal/display"
	"toolview/internal/history"
	"toolview/internal/timeutil"
	"toolview/internal/toolcall"
)

// ListSessions lists recorded sessions, newest first
func ListSessions() error {
	store, err := history.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	sessions, err := store.ListSessions(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet")
		fmt.Printf("\nStart one with: tv\n")
		return nil
	}

	now := time.Now()
	fmt.Printf("%-10s %-8s %-40s %s\n", "ID", "BACKEND", "TITLE", "UPDATED")
	fmt.Printf("%-10s %-8s %-40s %s\n", "--", "-------", "-----", "-------")

	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		if len(title) > 38 {
			title = title[:37] + "…"
		}
		updated := timeutil.FormatRelativeTime(time.Unix(s.UpdatedAt, 0), now)
		fmt.Printf("%-10s %-8s %-40s %s\n", shortID(s.ID), s.Backend, title, updated)
	}

	fmt.Printf("\nTotal: %d session(s)\n", len(sessions))
	return nil
}

// ShowSession prints one recorded transcript
func ShowSession(id string) error {
	store, err := history.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	rec, err := resolveSession(ctx, store, id)
	if err != nil {
		return err
	}

	emitter := NewPrettyEmitter()
	emitter.EmitInit(shortID(rec.ID), rec.Model, rec.Cwd)
	if rec.Title != "" {
		fmt.Println(labelStyle.Render(rec.Title))
		fmt.Println()
	}

	messages, err := store.Messages(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			fmt.Println(valueStyle.Render("> ") + msg.Text)
			fmt.Println()
		case "assistant":
			emitter.EmitText(msg.Text)
		case "thinking":
			emitter.EmitThinking(msg.Text)
		case "tool":
			var call toolcall.Call
			if msg.CallJSON != "" && json.Unmarshal([]byte(msg.CallJSON), &call) == nil {
				emitter.EmitCall(call, display.Extract(call))
			} else {
				fmt.Println("  " + mutedStyle.Render(msg.Text))
			}
		case "error":
			fmt.Println("  " + errorStyle.Render("✗") + " " + mutedStyle.Render(msg.Text))
		default:
			fmt.Println(msg.Text)
		}
	}

	return nil
}

// DeleteSession removes a recorded session and its transcript
func DeleteSession(id string, force bool) error {
	store, err := history.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	rec, err := resolveSession(ctx, store, id)
	if err != nil {
		return err
	}

	// Confirm unless --force is used
	if !force {
		title := rec.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("Delete session '%s' (%s)? (y/N): ", shortID(rec.ID), title)
		var response string
		fmt.Scanln(&response)
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := store.DeleteSession(ctx, rec.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Printf("✓ Deleted session '%s'\n", shortID(rec.ID))
	return nil
}

// resolveSession finds a session by exact ID or unique prefix.
func resolveSession(ctx context.Context, store *history.Store, id string) (history.SessionRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return history.SessionRecord{}, fmt.Errorf("session id cannot be empty")
	}

	if rec, err := store.GetSession(ctx, id); err == nil {
		return rec, nil
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return history.SessionRecord{}, fmt.Errorf("failed to list sessions: %w", err)
	}

	var matches []history.SessionRecord
	for _, s := range sessions {
		if strings.HasPrefix(s.ID, id) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return history.SessionRecord{}, fmt.Errorf("session '%s' not found", id)
	case 1:
		return matches[0], nil
	default:
		return history.SessionRecord{}, fmt.Errorf("session id '%s' is ambiguous (%d matches)", id, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
