package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/localstore"
	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
	"github.com/AnshRaj112/kanjou-nikki-backend/pkg/utils"
)

type entryFlags struct {
	date          string
	emotion       string
	event         string
	realization   string
	selfEsteem    int
	worthlessness int
}

// NewEntryCommand manages the local entry buffer.
func NewEntryCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "manage buffered diary entries",
	}

	f := &entryFlags{}
	add := &cobra.Command{
		Use:   "add",
		Short: "append an entry to the local buffer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(ctx); err != nil {
				return err
			}

			e, err := f.entry(time.Now())
			if err != nil {
				return err
			}
			if err := appendEntry(ctx, a.local, e); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		},
	}
	add.Flags().StringVar(&f.date, "date", "", "entry date, YYYY-MM-DD (default today)")
	add.Flags().StringVar(&f.emotion, "emotion", "", "emotion label")
	add.Flags().StringVar(&f.event, "event", "", "what happened")
	add.Flags().StringVar(&f.realization, "realization", "", "what you noticed")
	add.Flags().IntVar(&f.selfEsteem, "self-esteem", models.DefaultScore, "self-esteem score 0-100")
	add.Flags().IntVar(&f.worthlessness, "worthlessness", models.DefaultScore, "worthlessness score 0-100")
	_ = add.MarkFlagRequired("emotion")

	list := &cobra.Command{
		Use:   "list",
		Short: "print the local buffer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireSession(ctx); err != nil {
				return err
			}
			var entries []models.JournalEntry
			if _, err := localstore.GetJSON(ctx, a.local, localstore.KeyEntries, &entries); err != nil {
				return err
			}
			if entries == nil {
				entries = []models.JournalEntry{}
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func (f *entryFlags) entry(now time.Time) (models.JournalEntry, error) {
	date := strings.TrimSpace(f.date)
	if date == "" {
		date = now.Format(models.DateLayout)
	}
	if !models.ValidDate(date) {
		return models.JournalEntry{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	emotion := models.Emotion(strings.TrimSpace(f.emotion))
	if !emotion.IsValid() {
		return models.JournalEntry{}, fmt.Errorf("unknown emotion %q", f.emotion)
	}
	return models.JournalEntry{
		ID:                 uuid.NewString(),
		Date:               date,
		Emotion:            emotion,
		Event:              f.event,
		Realization:        f.realization,
		SelfEsteemScore:    models.ClampScore(f.selfEsteem),
		WorthlessnessScore: models.ClampScore(f.worthlessness),
		CreatedAt:          now.UTC(),
	}, nil
}

// appendEntry adds e to the buffer, keeping existing items byte-for-byte.
func appendEntry(ctx context.Context, s localstore.Store, e models.JournalEntry) error {
	var items []json.RawMessage
	if _, err := localstore.GetJSON(ctx, s, localstore.KeyEntries, &items); err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return localstore.SetJSON(ctx, s, localstore.KeyEntries, append(items, raw))
}

// NewUserCommand sets the diary user name entries are synced under.
func NewUserCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "user NAME",
		Short: "set the diary user name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := strings.TrimSpace(args[0])
			if err := utils.ValidateDisplayName(name); err != nil {
				return err
			}
			a, err := setup(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.local.Set(ctx, localstore.KeyUserName, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user name set to %s\n", name)
			return nil
		},
	}
}
